package transport

// Sequence numbers are 16 bits wide and wrap. a is newer than b when the
// forward distance from b to a is less than half the number space.
const seqHalf = 0x8000

// seqNewer reports whether a was issued after b, accounting for wraparound.
func seqNewer(a, b uint16) bool {
	d := a - b
	return d != 0 && d < seqHalf
}

// seqGen is a per-connection, per-tier sequence number generator.
// It is only touched by the goroutine that owns the Peer, so no atomics.
type seqGen struct {
	next uint16
}

// Next returns the next sequence number, wrapping after 65535.
func (g *seqGen) Next() uint16 {
	sn := g.next
	g.next++
	return sn
}
