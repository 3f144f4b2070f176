package protocol

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes a Packet into a byte slice for a single datagram.
func Encode(pkt *Packet) []byte {
	size := HeaderSize + len(pkt.Payload)
	buf := make([]byte, size)
	buf[0] = uint8(pkt.Kind)
	buf[1] = uint8(pkt.Tier)
	binary.BigEndian.PutUint16(buf[2:4], pkt.Seq)
	if len(pkt.Payload) > 0 {
		copy(buf[HeaderSize:], pkt.Payload)
	}
	return buf
}

// Decode deserializes a datagram into a Packet. It rejects short input and
// unknown kind or tier values; the payload never aliases data.
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: %d bytes (need at least %d)", len(data), HeaderSize)
	}
	pkt := &Packet{
		Kind: Kind(data[0]),
		Tier: Tier(data[1]),
		Seq:  binary.BigEndian.Uint16(data[2:4]),
	}
	if !pkt.Kind.valid() {
		return nil, fmt.Errorf("unsupported packet kind: %d", data[0])
	}
	if !pkt.Tier.Valid() {
		return nil, fmt.Errorf("unsupported tier: %d", data[1])
	}
	if len(data) > HeaderSize {
		pkt.Payload = make([]byte, len(data)-HeaderSize)
		copy(pkt.Payload, data[HeaderSize:])
	}
	return pkt, nil
}
