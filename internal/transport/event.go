package transport

import (
	"fmt"
	"net/netip"

	"github.com/google/uuid"

	"github.com/1ureka/blockgame/internal/protocol"
)

// EventType identifies what an Event reports.
type EventType uint8

const (
	// EventNewPeer: a handshake completed and the connection is Connected.
	EventNewPeer EventType = iota + 1
	// EventPeerTimedOut: nothing was accepted from the peer within the
	// timeout, or its retry buffer overflowed. Emitted once, then removed.
	EventPeerTimedOut
	// EventPeerDisconnected: the peer said goodbye, or the malformed-traffic
	// policy dropped it.
	EventPeerDisconnected
	// EventMessage: a Data payload passed its tier's delivery rule.
	EventMessage
)

func (t EventType) String() string {
	switch t {
	case EventNewPeer:
		return "new-peer"
	case EventPeerTimedOut:
		return "peer-timed-out"
	case EventPeerDisconnected:
		return "peer-disconnected"
	case EventMessage:
		return "message"
	}
	return fmt.Sprintf("event(%d)", uint8(t))
}

// Event is produced by Peer.Poll and consumed once by the application.
type Event struct {
	Type    EventType
	Peer    netip.AddrPort
	Session uuid.UUID     // changes every time the address (re)connects
	Tier    protocol.Tier // EventMessage only
	Payload []byte        // EventMessage only
}
