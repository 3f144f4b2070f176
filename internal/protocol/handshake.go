package protocol

// Default handshake components. Bump DefaultVersion whenever a message
// discriminant or field layout changes.
const (
	DefaultNamespace = "blockgame"
	DefaultVersion   = "0.1.0"
)

// ProtocolID joins a namespace and a version into the handshake string.
func ProtocolID(namespace, version string) string {
	return namespace + "-" + version
}

// MatchProtocolID reports whether a handshake payload names exactly id.
func MatchProtocolID(payload []byte, id string) bool {
	return string(payload) == id
}
