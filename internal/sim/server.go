package sim

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"

	"github.com/google/uuid"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/transport"
	"github.com/1ureka/blockgame/internal/util"
)

// BroadcastMode selects who hears about a player's position each tick.
type BroadcastMode string

const (
	// BroadcastSelf sends each player only its own PlayerUpdate.
	BroadcastSelf BroadcastMode = "self"
	// BroadcastAll additionally sends every connection a PlayerStates
	// snapshot of all players.
	BroadcastAll BroadcastMode = "all"
)

// DefaultSpawn is where new players appear.
var DefaultSpawn = protocol.Vec3{X: 0, Y: 40, Z: 0}

// ServerConfig configures the authoritative simulation.
type ServerConfig struct {
	TickRate  int
	Speed     float32
	Broadcast BroadcastMode
	Spawn     protocol.Vec3
}

// Validate reports the first invalid field.
func (c ServerConfig) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must not be negative, got %v", c.Speed)
	}
	switch c.Broadcast {
	case BroadcastSelf, BroadcastAll:
	default:
		return fmt.Errorf("unknown broadcast mode: %q", c.Broadcast)
	}
	return nil
}

// Player is the authoritative record for one connection. It exists exactly
// between the connection's NewPeer and its timeout or disconnect.
type Player struct {
	ID       uint32
	Addr     netip.AddrPort
	Session  uuid.UUID
	Position protocol.Vec3
	Input    protocol.Vec2 // last PlayerFrame received
}

// Snapshot is the state of every player after one tick.
type Snapshot struct {
	Tick    uint32
	Players []Player
}

// Server is the authoritative fixed-tick simulation. Like the transport it
// drives, it is owned by one goroutine.
type Server struct {
	tr      Transport
	cfg     ServerConfig
	dt      float32
	tick    uint32
	lastID  uint32
	players map[netip.AddrPort]*Player
	publish func(Snapshot)
}

// NewServer returns a Server driving tr. cfg must be valid.
func NewServer(tr Transport, cfg ServerConfig) *Server {
	return &Server{
		tr:      tr,
		cfg:     cfg,
		dt:      1 / float32(cfg.TickRate),
		players: make(map[netip.AddrPort]*Player),
	}
}

// OnSnapshot registers fn to receive every tick's Snapshot. fn runs on the
// tick goroutine and must not block.
func (s *Server) OnSnapshot(fn func(Snapshot)) { s.publish = fn }

// TickCount returns the number of completed ticks.
func (s *Server) TickCount() uint32 { return s.tick }

// Players returns a copy of every player, ordered by id.
func (s *Server) Players() []Player {
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b Player) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Tick runs one simulation step: poll, apply events, integrate, broadcast,
// publish. Only transport-fatal errors are returned.
func (s *Server) Tick() error {
	events, err := s.tr.Poll()
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := s.handle(ev); err != nil {
			return err
		}
	}

	for _, p := range s.players {
		p.Position = Integrate(p.Position, p.Input, s.cfg.Speed, s.dt)
	}
	s.tick++

	players := s.Players()
	if err := s.broadcast(players); err != nil {
		return err
	}
	if s.publish != nil {
		s.publish(Snapshot{Tick: s.tick, Players: players})
	}
	return nil
}

func (s *Server) handle(ev transport.Event) error {
	switch ev.Type {
	case transport.EventNewPeer:
		return s.join(ev)
	case transport.EventPeerTimedOut, transport.EventPeerDisconnected:
		return s.leave(ev)
	case transport.EventMessage:
		s.apply(ev)
	}
	return nil
}

func (s *Server) join(ev transport.Event) error {
	if old, ok := s.players[ev.Peer]; ok {
		// Same address, new session: the old player is gone.
		util.LogWarning("[%s] replacing player %d", ev.Peer, old.ID)
		if err := s.leave(ev); err != nil {
			return err
		}
	}

	s.lastID++
	p := &Player{
		ID:       s.lastID,
		Addr:     ev.Peer,
		Session:  ev.Session,
		Position: s.cfg.Spawn,
	}
	s.players[ev.Peer] = p
	util.LogSuccess("[%s] player %d joined", ev.Peer, p.ID)

	return send(s.tr, p.Addr, protocol.Welcome{Player: p.ID}, protocol.Reliable)
}

func (s *Server) leave(ev transport.Event) error {
	p, ok := s.players[ev.Peer]
	if !ok {
		return nil
	}
	delete(s.players, ev.Peer)
	util.LogInfo("[%s] player %d left (%v)", ev.Peer, p.ID, ev.Type)

	for _, other := range s.players {
		if err := send(s.tr, other.Addr, protocol.PlayerLeft{Player: p.ID}, protocol.Reliable); err != nil {
			return err
		}
	}
	return nil
}

// apply updates input state from a client message. Nothing else a client
// sends can change the world.
func (s *Server) apply(ev transport.Event) {
	p, ok := s.players[ev.Peer]
	if !ok {
		return
	}
	m, ok := decode(s.tr, ev)
	if !ok {
		return
	}

	switch m := m.(type) {
	case protocol.PlayerFrame:
		if !finite(m.Input) {
			util.LogWarning("[%s] dropping non-finite input %v", ev.Peer, m.Input)
			s.tr.ReportMalformed(ev.Peer)
			return
		}
		p.Input = m.Input
	default:
		util.LogDebug("[%s] ignoring client-sent %T", ev.Peer, m)
	}
}

func (s *Server) broadcast(players []Player) error {
	for _, p := range players {
		if err := send(s.tr, p.Addr, protocol.PlayerUpdate{Position: p.Position}, protocol.Sequenced); err != nil {
			return err
		}
	}
	if s.cfg.Broadcast != BroadcastAll || len(players) == 0 {
		return nil
	}

	batches := statesBatches(s.tick, players)
	for _, p := range players {
		for _, b := range batches {
			if err := send(s.tr, p.Addr, b, protocol.Unreliable); err != nil {
				return err
			}
		}
	}
	return nil
}

// statesBatches splits the snapshot into PlayerStates messages that each
// fit one datagram. All batches carry the same tick.
func statesBatches(tick uint32, players []Player) []protocol.PlayerStates {
	var out []protocol.PlayerStates
	cur := protocol.PlayerStates{Tick: tick}
	for _, p := range players {
		st := protocol.PlayerState{Player: p.ID, Position: p.Position}
		cur.Players = append(cur.Players, st)
		if len(protocol.EncodeMessage(cur)) > protocol.MaxPayloadSize && len(cur.Players) > 1 {
			cur.Players = cur.Players[:len(cur.Players)-1]
			out = append(out, cur)
			cur = protocol.PlayerStates{Tick: tick, Players: []protocol.PlayerState{st}}
		}
	}
	return append(out, cur)
}
