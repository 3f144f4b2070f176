package sim

import (
	"math"

	"github.com/1ureka/blockgame/internal/protocol"
)

// DirectionalInput is the held state of the four movement keys, sampled
// once per tick.
type DirectionalInput struct {
	Forward, Backward, Left, Right bool
}

// Vector maps the keys to a 2D intent: X is right minus left, Y is backward
// minus forward, so forward points toward -Z in world space.
func (d DirectionalInput) Vector() protocol.Vec2 {
	var v protocol.Vec2
	if d.Right {
		v.X++
	}
	if d.Left {
		v.X--
	}
	if d.Backward {
		v.Y++
	}
	if d.Forward {
		v.Y--
	}
	return v
}

// RotateVector rotates v counter-clockwise by angle radians. The client
// passes the negated camera yaw to turn key input into world axes.
func RotateVector(v protocol.Vec2, angle float32) protocol.Vec2 {
	sin, cos := math.Sincos(float64(angle))
	s, c := float32(sin), float32(cos)
	return protocol.Vec2{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
	}
}

// Integrate advances pos by one tick of input. Input is normalized first so
// diagonal movement is no faster than axis-aligned movement; X maps to the
// world X axis and Y to the world Z axis.
func Integrate(pos protocol.Vec3, input protocol.Vec2, speed, dt float32) protocol.Vec3 {
	in := input.Normalize()
	if in == (protocol.Vec2{}) {
		return pos
	}
	step := speed * dt
	pos.X += in.X * step
	pos.Z += in.Y * step
	return pos
}

// finite reports whether both components are real numbers.
func finite(v protocol.Vec2) bool {
	return !math.IsNaN(float64(v.X)) && !math.IsInf(float64(v.X), 0) &&
		!math.IsNaN(float64(v.Y)) && !math.IsInf(float64(v.Y), 0)
}
