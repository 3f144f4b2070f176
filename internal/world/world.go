// Package world is the boundary to the voxel terrain collaborators. The
// transport and simulation never import it; a renderer or an editing tool
// supplies the implementations.
package world

import "github.com/1ureka/blockgame/internal/protocol"

// DefaultCastDistance is how far a block pick reaches.
const DefaultCastDistance float32 = 10

// Vec3i addresses one voxel inside a grid.
type Vec3i struct {
	X, Y, Z int32
}

// VoxelGrid is a fixed-size block of voxels in its own local frame.
type VoxelGrid interface {
	Size() Vec3i
	Solid(at Vec3i) bool
}

// Chunk places a grid in the world. Origin is the world position of the
// grid's local (0,0,0).
type Chunk struct {
	Origin protocol.Vec3
	Grid   VoxelGrid
}

// Generator produces the chunks of a world from a seed.
type Generator interface {
	Generate(seed int64) []Chunk
}

// Hit is a ray intersection with a solid voxel.
type Hit struct {
	Voxel    Vec3i         // voxel index in the hit chunk's grid
	Position protocol.Vec3 // intersection point; chunk-local from a RayCaster, world from PickNearest
	Chunk    int           // index into the chunks passed to PickNearest
}

// RayCaster intersects a ray with a single grid. origin and dir are in the
// grid's local frame.
type RayCaster interface {
	Cast(origin, dir protocol.Vec3, maxDist float32, grid VoxelGrid) (Hit, bool)
}
