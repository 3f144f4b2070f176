package sim

import (
	"errors"
	"net/netip"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/transport"
	"github.com/1ureka/blockgame/internal/util"
)

// Transport is the part of *transport.Peer the simulation drives.
type Transport interface {
	Poll() ([]transport.Event, error)
	Send(remote netip.AddrPort, payload []byte, tier protocol.Tier) error
	ReportMalformed(remote netip.AddrPort)
}

// Dialer is a Transport that can also open connections.
type Dialer interface {
	Transport
	Connect(remote netip.AddrPort) error
}

var (
	_ Transport = (*transport.Peer)(nil)
	_ Dialer    = (*transport.Peer)(nil)
)

// send encodes m and hands it to tr. Only transport-fatal errors are
// returned; a send to a vanished or overloaded connection is logged and
// forgotten, the lifecycle events catch up on the next poll.
func send(tr Transport, to netip.AddrPort, m protocol.Message, tier protocol.Tier) error {
	err := tr.Send(to, protocol.EncodeMessage(m), tier)
	if err == nil {
		return nil
	}
	if transport.IsFatal(err) || errors.Is(err, transport.ErrStopped) {
		return err
	}
	util.LogDebug("[%s] %T not sent: %v", to, m, err)
	return nil
}

// decode parses an EventMessage payload. Undecodable payloads are reported
// to the transport and logged, and ok is false.
func decode(tr Transport, ev transport.Event) (protocol.Message, bool) {
	m, err := protocol.DecodeMessage(ev.Payload)
	if err != nil {
		util.LogWarning("[%s] dropping message: %v", ev.Peer, err)
		tr.ReportMalformed(ev.Peer)
		return nil, false
	}
	return m, true
}
