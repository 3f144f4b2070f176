package sim

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/1ureka/blockgame/internal/protocol"
)

func TestDirectionalInputVector(t *testing.T) {
	tests := []struct {
		name string
		in   DirectionalInput
		want protocol.Vec2
	}{
		{"none", DirectionalInput{}, protocol.Vec2{}},
		{"forward", DirectionalInput{Forward: true}, protocol.Vec2{X: 0, Y: -1}},
		{"backward", DirectionalInput{Backward: true}, protocol.Vec2{X: 0, Y: 1}},
		{"left", DirectionalInput{Left: true}, protocol.Vec2{X: -1, Y: 0}},
		{"right", DirectionalInput{Right: true}, protocol.Vec2{X: 1, Y: 0}},
		{"opposites cancel", DirectionalInput{Left: true, Right: true}, protocol.Vec2{}},
		{"diagonal", DirectionalInput{Forward: true, Right: true}, protocol.Vec2{X: 1, Y: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Vector(); got != tt.want {
				t.Errorf("Vector() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotateVector(t *testing.T) {
	got := RotateVector(protocol.Vec2{X: 1}, math.Pi/2)
	if !approx(got.X, 0) || !approx(got.Y, 1) {
		t.Errorf("rotate (1,0) by pi/2 = %v, want (0,1)", got)
	}
	got = RotateVector(protocol.Vec2{X: 0, Y: -1}, 0)
	if got != (protocol.Vec2{X: 0, Y: -1}) {
		t.Errorf("rotate by 0 changed the vector: %v", got)
	}
}

func TestIntegrate(t *testing.T) {
	start := protocol.Vec3{X: 1, Y: 40, Z: 1}

	if got := Integrate(start, protocol.Vec2{}, 2, 1.0/30); got != start {
		t.Errorf("zero input moved the player to %v", got)
	}

	got := Integrate(start, protocol.Vec2{X: 0, Y: 5}, 2, 0.5)
	if !approx(got.Z, 2) || got.X != 1 || got.Y != 40 {
		t.Errorf("axis input = %v, want z+1 only", got)
	}

	diag := Integrate(protocol.Vec3{}, protocol.Vec2{X: 1, Y: 1}, 2, 0.5)
	if dist := float32(math.Sqrt(float64(diag.LenSq()))); !approx(dist, 1) {
		t.Errorf("diagonal step length = %v, want 1", dist)
	}
}

func TestRunFixed(t *testing.T) {
	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ticks := 0
		err := RunFixed(ctx, 200, func() error {
			ticks++
			if ticks == 3 {
				cancel()
			}
			return nil
		})
		if err != nil {
			t.Fatalf("RunFixed = %v, want nil", err)
		}
		if ticks < 3 {
			t.Errorf("ran %d ticks, want at least 3", ticks)
		}
	})

	t.Run("returns step error", func(t *testing.T) {
		boom := errors.New("boom")
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := RunFixed(ctx, 200, func() error { return boom }); !errors.Is(err, boom) {
			t.Errorf("RunFixed = %v, want boom", err)
		}
	})

	t.Run("rejects bad rate", func(t *testing.T) {
		if err := RunFixed(context.Background(), 0, func() error { return nil }); err == nil {
			t.Error("RunFixed with rate 0 should fail")
		}
	})
}
