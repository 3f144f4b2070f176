package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/1ureka/blockgame/internal/app"
	"github.com/1ureka/blockgame/internal/protocol"
)

func newClientCmd(root *rootOptions) *cobra.Command {
	var (
		server   string
		input    string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Join a server as a headless client holding a fixed input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("server") {
				cfg.Client.Server = server
			}

			in, err := parseInput(input)
			if err != nil {
				return err
			}
			return app.RunClient(cmd.Context(), cfg, in, duration)
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "Server address (default from config, 127.0.0.1:25566)")
	cmd.Flags().StringVarP(&input, "input", "i", "0,0", "Held movement input as x,y (x right, y backward)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (0 runs until Ctrl+C)")
	return cmd
}

// parseInput parses "x,y" into an input vector.
func parseInput(raw string) (protocol.Vec2, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(raw), ",")
	if !ok {
		return protocol.Vec2{}, fmt.Errorf("invalid input %q: want x,y", raw)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 32)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 32)
	if errX != nil || errY != nil {
		return protocol.Vec2{}, fmt.Errorf("invalid input %q: want x,y", raw)
	}
	return protocol.Vec2{X: float32(x), Y: float32(y)}, nil
}
