package observer

import "github.com/1ureka/blockgame/internal/sim"

// FromSim converts a simulation snapshot to its observer form.
func FromSim(snap sim.Snapshot) Snapshot {
	out := Snapshot{Tick: snap.Tick, Players: make([]PlayerView, 0, len(snap.Players))}
	for _, p := range snap.Players {
		out.Players = append(out.Players, PlayerView{
			Player:   p.ID,
			Session:  p.Session.String(),
			Addr:     p.Addr.String(),
			Position: [3]float32{p.Position.X, p.Position.Y, p.Position.Z},
		})
	}
	return out
}
