package protocol_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/1ureka/blockgame/internal/protocol"
)

// TestEncodeDecodeRoundTrip verifies that encoding and decoding are inverse operations
// for all envelope kinds with various payload sizes.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		pkt  *protocol.Packet
	}{
		{
			name: "handshake with protocol id",
			pkt: &protocol.Packet{
				Kind:    protocol.KindHandshake,
				Payload: []byte("blockgame-0.1.0"),
			},
		},
		{
			name: "sequenced data",
			pkt: &protocol.Packet{
				Kind:    protocol.KindData,
				Tier:    protocol.Sequenced,
				Seq:     42,
				Payload: []byte("hello world"),
			},
		},
		{
			name: "reliable ack with no payload",
			pkt: &protocol.Packet{
				Kind: protocol.KindAck,
				Tier: protocol.Reliable,
				Seq:  65535,
			},
		},
		{
			name: "ping",
			pkt:  &protocol.Packet{Kind: protocol.KindPing},
		},
		{
			name: "data with full payload",
			pkt: &protocol.Packet{
				Kind:    protocol.KindData,
				Tier:    protocol.Unreliable,
				Payload: make([]byte, protocol.MaxPayloadSize),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := protocol.Encode(tc.pkt)
			if len(encoded) != protocol.HeaderSize+len(tc.pkt.Payload) {
				t.Fatalf("encoded size = %d, want %d", len(encoded), protocol.HeaderSize+len(tc.pkt.Payload))
			}

			decoded, err := protocol.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if decoded.Kind != tc.pkt.Kind {
				t.Errorf("Kind mismatch: got %v, want %v", decoded.Kind, tc.pkt.Kind)
			}
			if decoded.Tier != tc.pkt.Tier {
				t.Errorf("Tier mismatch: got %v, want %v", decoded.Tier, tc.pkt.Tier)
			}
			if decoded.Seq != tc.pkt.Seq {
				t.Errorf("Seq mismatch: got %d, want %d", decoded.Seq, tc.pkt.Seq)
			}
			if !bytes.Equal(decoded.Payload, tc.pkt.Payload) {
				t.Errorf("Payload mismatch: got %v, want %v", decoded.Payload, tc.pkt.Payload)
			}
		})
	}
}

// TestDecodeRejectsBadHeaders verifies that short input and unknown kind or
// tier bytes are refused.
func TestDecodeRejectsBadHeaders(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"1 byte", []byte{0x02}},
		{"3 bytes (one less than HeaderSize)", []byte{0x02, 0x00, 0x00}},
		{"kind zero", []byte{0x00, 0x00, 0x00, 0x00}},
		{"kind out of range", []byte{0x06, 0x00, 0x00, 0x00}},
		{"tier out of range", []byte{0x02, 0x03, 0x00, 0x00}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := protocol.Decode(tc.data); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

// TestDecodeZeroLengthPayloadEnvelope verifies that an envelope with an empty
// payload is itself valid; only the message inside is malformed.
func TestDecodeZeroLengthPayloadEnvelope(t *testing.T) {
	for _, tier := range []protocol.Tier{protocol.Unreliable, protocol.Sequenced, protocol.Reliable} {
		t.Run(tier.String(), func(t *testing.T) {
			pkt, err := protocol.Decode(protocol.Encode(&protocol.Packet{Kind: protocol.KindData, Tier: tier, Seq: 7}))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(pkt.Payload) != 0 {
				t.Fatalf("expected empty payload, got %d bytes", len(pkt.Payload))
			}
		})
	}
}

// TestDecodePreservesPayload verifies that the payload is copied and not
// aliased to the input buffer.
func TestDecodePreservesPayload(t *testing.T) {
	encoded := protocol.Encode(&protocol.Packet{
		Kind:    protocol.KindData,
		Tier:    protocol.Reliable,
		Seq:     10,
		Payload: []byte("original"),
	})
	decoded, err := protocol.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	encoded[protocol.HeaderSize] = 0xFF

	if !bytes.Equal(decoded.Payload, []byte("original")) {
		t.Errorf("Payload was incorrectly aliased: got %v", decoded.Payload)
	}
}

func TestKindAndTierStrings(t *testing.T) {
	for _, tc := range []struct {
		got, want string
	}{
		{protocol.KindHandshake.String(), "handshake"},
		{protocol.KindDisconnect.String(), "disconnect"},
		{protocol.Kind(9).String(), "kind(9)"},
		{protocol.Sequenced.String(), "sequenced"},
		{protocol.Tier(7).String(), "tier(7)"},
	} {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestProtocolID(t *testing.T) {
	id := protocol.ProtocolID(protocol.DefaultNamespace, protocol.DefaultVersion)
	if id != "blockgame-0.1.0" {
		t.Fatalf("ProtocolID = %q", id)
	}
	for _, tc := range []struct {
		payload string
		want    bool
	}{
		{"blockgame-0.1.0", true},
		{"blockgame-0.1.1", false},
		{"blockgame-0.1.0\x00", false},
		{"", false},
	} {
		t.Run(fmt.Sprintf("%q", tc.payload), func(t *testing.T) {
			if got := protocol.MatchProtocolID([]byte(tc.payload), id); got != tc.want {
				t.Errorf("MatchProtocolID = %v, want %v", got, tc.want)
			}
		})
	}
}
