package world

import "github.com/1ureka/blockgame/internal/protocol"

// PickNearest casts the ray into every chunk and returns the hit closest to
// origin, with Position in world space. Hits farther than maxDist are
// ignored even if a caster reports them.
func PickNearest(chunks []Chunk, caster RayCaster, origin, dir protocol.Vec3, maxDist float32) (Hit, bool) {
	var (
		best  Hit
		found bool
		bound = maxDist * maxDist
	)

	for i, c := range chunks {
		local := origin.Sub(c.Origin)
		hit, ok := caster.Cast(local, dir, maxDist, c.Grid)
		if !ok {
			continue
		}

		hit.Position = hit.Position.Add(c.Origin)
		hit.Chunk = i
		if d := hit.Position.Sub(origin).LenSq(); d <= bound {
			bound = d
			best = hit
			found = true
		}
	}
	return best, found
}
