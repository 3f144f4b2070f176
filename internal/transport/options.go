package transport

import (
	"errors"
	"fmt"
	"time"
)

// MalformedPolicy decides what happens to a connection that keeps sending
// undecodable traffic.
type MalformedPolicy string

const (
	// PolicyDrop drops bad packets and keeps the connection.
	PolicyDrop MalformedPolicy = "drop"
	// PolicyDisconnect drops the connection once its malformed budget is spent.
	PolicyDisconnect MalformedPolicy = "disconnect"
)

// Options configures a Peer. Zero fields take the values of DefaultOptions.
type Options struct {
	// Bind is the local UDP address. Empty means an ephemeral client port;
	// a Peer with a non-empty Bind accepts incoming handshakes.
	Bind string

	// ProtocolID is the exact handshake string both sides must present.
	ProtocolID string

	Timeout        time.Duration // inactivity before a connection times out
	PingInterval   time.Duration // idle time before a heartbeat is sent
	ResendInterval time.Duration // reliable and handshake retransmit backoff

	MaxPendingReliable int // unacked reliable datagrams per connection
	RecvQueue          int // datagrams buffered between socket reads and Poll
	EventQueue         int // events returned by one Poll call

	MalformedPolicy MalformedPolicy
	MalformedRate   float64 // malformed packets per second tolerated
	MalformedBurst  int

	// Now is the clock; tests replace it to step time deterministically.
	Now func() time.Time
}

// Timing and sizing defaults.
const (
	DefaultTimeout            = 5 * time.Second
	DefaultPingInterval       = 1 * time.Second
	DefaultResendInterval     = 500 * time.Millisecond
	DefaultMaxPendingReliable = 256
	DefaultRecvQueue          = 1024
	DefaultEventQueue         = 1024
	DefaultMalformedRate      = 5
	DefaultMalformedBurst     = 20
)

// DefaultOptions returns the defaults for everything except Bind and ProtocolID.
func DefaultOptions() Options {
	return Options{
		Timeout:            DefaultTimeout,
		PingInterval:       DefaultPingInterval,
		ResendInterval:     DefaultResendInterval,
		MaxPendingReliable: DefaultMaxPendingReliable,
		RecvQueue:          DefaultRecvQueue,
		EventQueue:         DefaultEventQueue,
		MalformedPolicy:    PolicyDrop,
		MalformedRate:      DefaultMalformedRate,
		MalformedBurst:     DefaultMalformedBurst,
		Now:                time.Now,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.ResendInterval <= 0 {
		o.ResendInterval = d.ResendInterval
	}
	if o.MaxPendingReliable <= 0 {
		o.MaxPendingReliable = d.MaxPendingReliable
	}
	if o.RecvQueue <= 0 {
		o.RecvQueue = d.RecvQueue
	}
	if o.EventQueue <= 0 {
		o.EventQueue = d.EventQueue
	}
	if o.MalformedPolicy == "" {
		o.MalformedPolicy = d.MalformedPolicy
	}
	if o.MalformedRate <= 0 {
		o.MalformedRate = d.MalformedRate
	}
	if o.MalformedBurst <= 0 {
		o.MalformedBurst = d.MalformedBurst
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

func (o Options) validate() error {
	if o.ProtocolID == "" {
		return errors.New("protocol id must not be empty")
	}
	if o.MaxPendingReliable >= dedupWindow {
		return fmt.Errorf("max pending reliable (%d) must be below %d", o.MaxPendingReliable, dedupWindow)
	}
	switch o.MalformedPolicy {
	case PolicyDrop, PolicyDisconnect:
	default:
		return fmt.Errorf("unknown malformed policy: %q", o.MalformedPolicy)
	}
	return nil
}
