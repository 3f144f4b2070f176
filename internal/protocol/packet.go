// Package protocol defines the datagram envelope, the game message union and
// the handshake identifier shared by the blockgame server and client.
package protocol

import "fmt"

// Kind identifies the purpose of an envelope.
type Kind uint8

// Envelope kind constants.
const (
	KindHandshake  Kind = 0x01 // Protocol id exchange
	KindData       Kind = 0x02 // Application message payload
	KindAck        Kind = 0x03 // Acknowledges a reliable Seq
	KindPing       Kind = 0x04 // Heartbeat, keeps an idle connection alive
	KindDisconnect Kind = 0x05 // Sender dropped the connection
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindData:
		return "data"
	case KindAck:
		return "ack"
	case KindPing:
		return "ping"
	case KindDisconnect:
		return "disconnect"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) valid() bool { return k >= KindHandshake && k <= KindDisconnect }

// Tier is the delivery guarantee requested for a Data envelope.
type Tier uint8

const (
	// Unreliable packets are delivered as received, duplicates and all.
	Unreliable Tier = iota
	// Sequenced packets are delivered only if newer than anything accepted
	// before on the same connection.
	Sequenced
	// Reliable packets are retransmitted until acked and deduplicated on receipt.
	Reliable

	tierCount
)

func (t Tier) String() string {
	switch t {
	case Unreliable:
		return "unreliable"
	case Sequenced:
		return "sequenced"
	case Reliable:
		return "reliable"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool { return t < tierCount }

// Seq values carried by KindHandshake. Only requests are answered, so two
// listening peers never bounce replies back and forth.
const (
	HandshakeRequest uint16 = 0
	HandshakeReply   uint16 = 1
)

// HeaderSize is the fixed header size: Kind(1) + Tier(1) + Seq(2).
const HeaderSize = 4

// MaxPacketSize is the largest datagram either side sends or reads.
const MaxPacketSize = 512

// MaxPayloadSize is the largest payload that fits in one datagram.
const MaxPayloadSize = MaxPacketSize - HeaderSize

// Packet is one datagram on the wire.
type Packet struct {
	Kind    Kind
	Tier    Tier   // Meaningful for KindData and KindAck
	Seq     uint16 // Sequence number, acked Seq, or HandshakeRequest/HandshakeReply
	Payload []byte // Protocol id for KindHandshake, message bytes for KindData
}
