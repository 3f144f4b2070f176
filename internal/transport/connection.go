package transport

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/1ureka/blockgame/internal/protocol"
)

// State is a connection's lifecycle state.
type State uint8

const (
	// Connecting: handshake sent, no matching reply yet.
	Connecting State = iota
	// Connected: handshake validated both ways.
	Connected
	// TimedOut is terminal; the connection is removed in the same Poll.
	TimedOut
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case TimedOut:
		return "timed-out"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Connection is the per-address state owned by a Peer. Only the Peer's
// goroutine touches it, and only Poll moves it between states.
type Connection struct {
	addr    netip.AddrPort
	session uuid.UUID
	state   State

	created  time.Time
	lastSeen time.Time // last accepted packet
	lastSent time.Time // last datagram written

	seqOut [3]seqGen // indexed by protocol.Tier; Unreliable unused
	seqIn  sequencedIn
	relIn  reliableIn
	retry  *retryBuffer

	malformed  *rate.Limiter
	penalized  bool // malformed budget spent under PolicyDisconnect
	overflowed bool // a reliable send found the retry buffer full
	gotData    bool // any data, ack or ping arrived after the handshake
}

func newConnection(addr netip.AddrPort, state State, now time.Time, opts Options) *Connection {
	return &Connection{
		addr:      addr,
		session:   uuid.New(),
		state:     state,
		created:   now,
		lastSeen:  now,
		retry:     newRetryBuffer(opts.MaxPendingReliable),
		malformed: rate.NewLimiter(rate.Limit(opts.MalformedRate), opts.MalformedBurst),
	}
}

// touch records an accepted packet.
func (c *Connection) touch(now time.Time) { c.lastSeen = now }

// idle reports whether nothing was accepted for longer than timeout.
func (c *Connection) idle(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.lastSeen) > timeout
}

// nextSeq issues the next outbound sequence number for tier.
func (c *Connection) nextSeq(tier protocol.Tier) uint16 {
	return c.seqOut[tier].Next()
}

// ConnInfo is a read-only view of a Connection.
type ConnInfo struct {
	Addr            netip.AddrPort
	Session         uuid.UUID
	State           State
	LastSeen        time.Time
	PendingReliable int
}

func (c *Connection) info() ConnInfo {
	return ConnInfo{
		Addr:            c.addr,
		Session:         c.session,
		State:           c.state,
		LastSeen:        c.lastSeen,
		PendingReliable: c.retry.Len(),
	}
}
