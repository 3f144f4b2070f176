package sim

import (
	"fmt"
	"maps"
	"net/netip"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/transport"
	"github.com/1ureka/blockgame/internal/util"
)

// ClientConfig configures a predicting client.
type ClientConfig struct {
	Server   netip.AddrPort
	TickRate int
	Speed    float32 // must match the server for prediction to hold
	Spawn    protocol.Vec3
}

// Validate reports the first invalid field.
func (c ClientConfig) Validate() error {
	if !c.Server.IsValid() {
		return fmt.Errorf("invalid server address: %v", c.Server)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must not be negative, got %v", c.Speed)
	}
	return nil
}

// RemotePlayer is another player as last reported by the server.
type RemotePlayer struct {
	Position protocol.Vec3
	Tick     uint32 // server tick of the newest PlayerStates entry applied
}

// Client predicts its own movement locally and snaps to the server's
// authoritative position whenever a PlayerUpdate arrives.
type Client struct {
	tr  Dialer
	cfg ClientConfig
	dt  float32

	connected bool
	player    uint32 // 0 until Welcome
	position  protocol.Vec3
	input     protocol.Vec2
	remotes   map[uint32]RemotePlayer
	departed  map[uint32]struct{} // ids are never reused; late snapshots must not revive them
}

// NewClient returns a Client for cfg.Server over tr. cfg must be valid.
func NewClient(tr Dialer, cfg ClientConfig) *Client {
	return &Client{
		tr:       tr,
		cfg:      cfg,
		dt:       1 / float32(cfg.TickRate),
		position: cfg.Spawn,
		remotes:  make(map[uint32]RemotePlayer),
		departed: make(map[uint32]struct{}),
	}
}

// Connect starts the handshake with the server.
func (c *Client) Connect() error {
	return c.tr.Connect(c.cfg.Server)
}

// SetInput replaces the input sampled on the next tick.
func (c *Client) SetInput(v protocol.Vec2) { c.input = v }

// Connected reports whether the server connection is up.
func (c *Client) Connected() bool { return c.connected }

// PlayerID returns the id assigned by the server, if any yet.
func (c *Client) PlayerID() (uint32, bool) { return c.player, c.player != 0 }

// Position returns the predicted, last reconciled position.
func (c *Client) Position() protocol.Vec3 { return c.position }

// Remotes returns a copy of every other player the server has reported.
func (c *Client) Remotes() map[uint32]RemotePlayer { return maps.Clone(c.remotes) }

// Tick polls the transport, applies server messages, then predicts one
// step of movement and sends the input that produced it.
func (c *Client) Tick() error {
	events, err := c.tr.Poll()
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Peer != c.cfg.Server {
			continue
		}
		c.handle(ev)
	}

	if !c.connected {
		return nil
	}
	c.position = Integrate(c.position, c.input, c.cfg.Speed, c.dt)
	return send(c.tr, c.cfg.Server, protocol.PlayerFrame{Input: c.input}, protocol.Sequenced)
}

func (c *Client) handle(ev transport.Event) {
	switch ev.Type {
	case transport.EventNewPeer:
		c.connected = true
		util.LogSuccess("connected to %s", ev.Peer)

	case transport.EventPeerTimedOut, transport.EventPeerDisconnected:
		c.connected = false
		c.player = 0
		clear(c.remotes)
		clear(c.departed)
		util.LogWarning("lost connection to %s (%v)", ev.Peer, ev.Type)

	case transport.EventMessage:
		m, ok := decode(c.tr, ev)
		if !ok {
			return
		}
		c.apply(m)
	}
}

func (c *Client) apply(m protocol.Message) {
	switch m := m.(type) {
	case protocol.PlayerUpdate:
		// Stale updates never get here; the Sequenced tier drops them.
		c.position = m.Position
	case protocol.Welcome:
		c.player = m.Player
		// A snapshot that beat the Welcome may have listed us as a remote.
		delete(c.remotes, m.Player)
		util.LogInfo("assigned player id %d", m.Player)
	case protocol.PlayerStates:
		for _, st := range m.Players {
			if st.Player == c.player {
				continue
			}
			if _, gone := c.departed[st.Player]; gone {
				continue
			}
			if r, ok := c.remotes[st.Player]; ok && r.Tick > m.Tick {
				continue
			}
			c.remotes[st.Player] = RemotePlayer{Position: st.Position, Tick: m.Tick}
		}
	case protocol.PlayerLeft:
		delete(c.remotes, m.Player)
		c.departed[m.Player] = struct{}{}
	default:
		util.LogDebug("ignoring server-sent %T", m)
	}
}
