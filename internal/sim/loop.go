package sim

import (
	"context"
	"fmt"
	"time"
)

// Stepper is anything advanced once per fixed tick.
type Stepper interface {
	Tick() error
}

// RunFixed calls step rate times per second until ctx is done or step
// returns an error. A tick that overruns its slot is not made up; the
// ticker drops it.
func RunFixed(ctx context.Context, rate int, step func() error) error {
	if rate <= 0 {
		return fmt.Errorf("invalid tick rate: %d", rate)
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := step(); err != nil {
				return err
			}
		}
	}
}

// Run drives s with RunFixed.
func Run(ctx context.Context, rate int, s Stepper) error {
	return RunFixed(ctx, rate, s.Tick)
}
