package world

import (
	"testing"

	"github.com/1ureka/blockgame/internal/protocol"
)

// Compile-time interface checks.
var (
	_ VoxelGrid = solidGrid{}
	_ RayCaster = (*planeCaster)(nil)
)

type solidGrid struct{}

func (solidGrid) Size() Vec3i      { return Vec3i{16, 16, 16} }
func (solidGrid) Solid(Vec3i) bool { return true }

// planeCaster hits the local plane x=0 for rays pointing toward it, and
// records every local origin it was given.
type planeCaster struct {
	origins []protocol.Vec3
}

func (c *planeCaster) Cast(origin, dir protocol.Vec3, maxDist float32, _ VoxelGrid) (Hit, bool) {
	c.origins = append(c.origins, origin)
	if dir.X == 0 || (origin.X > 0) == (dir.X > 0) {
		return Hit{}, false
	}
	t := -origin.X / dir.X
	if t > maxDist {
		return Hit{}, false
	}
	return Hit{Position: origin.Add(dir.Scale(t))}, true
}

func TestPickNearest(t *testing.T) {
	chunks := []Chunk{
		{Origin: protocol.Vec3{X: 8}, Grid: solidGrid{}},
		{Origin: protocol.Vec3{X: 3}, Grid: solidGrid{}},
		{Origin: protocol.Vec3{X: -2}, Grid: solidGrid{}}, // behind the ray
	}
	caster := &planeCaster{}
	origin := protocol.Vec3{X: 0, Y: 40, Z: 0}
	dir := protocol.Vec3{X: 1}

	hit, ok := PickNearest(chunks, caster, origin, dir, DefaultCastDistance)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Chunk != 1 {
		t.Errorf("picked chunk %d, want the nearest (1)", hit.Chunk)
	}
	if want := (protocol.Vec3{X: 3, Y: 40}); hit.Position != want {
		t.Errorf("hit position = %v, want %v in world space", hit.Position, want)
	}

	// Rays are cast in each chunk's local frame.
	if want := (protocol.Vec3{X: -8, Y: 40}); caster.origins[0] != want {
		t.Errorf("local origin = %v, want %v", caster.origins[0], want)
	}
}

func TestPickNearestMisses(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
		dist   float32
	}{
		{"no chunks", nil, DefaultCastDistance},
		{"out of reach", []Chunk{{Origin: protocol.Vec3{X: 50}, Grid: solidGrid{}}}, DefaultCastDistance},
		{"behind", []Chunk{{Origin: protocol.Vec3{X: -1}, Grid: solidGrid{}}}, DefaultCastDistance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := PickNearest(tt.chunks, &planeCaster{}, protocol.Vec3{}, protocol.Vec3{X: 1}, tt.dist); ok {
				t.Error("expected no hit")
			}
		})
	}
}
