// Package app contains the top-level orchestration for the server and
// client roles.
package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/1ureka/blockgame/internal/config"
	"github.com/1ureka/blockgame/internal/observer"
	"github.com/1ureka/blockgame/internal/sim"
	"github.com/1ureka/blockgame/internal/transport"
	"github.com/1ureka/blockgame/internal/util"
)

// RunServer runs the authoritative server until ctx is cancelled:
//  1. Bind the UDP peer
//  2. Start the observer feed, if configured
//  3. Tick the simulation at the configured rate
func RunServer(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── 1. Transport ───────────────────────────────────────────────────
	peer, err := transport.Start(cfg.TransportOptions(cfg.Server.Bind))
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer peer.Stop()

	srv := sim.NewServer(peer, cfg.SimServer())

	// ── 2. Observer feed ───────────────────────────────────────────────
	observerAddr := "disabled"
	if cfg.Server.Observer != "" {
		obs := observer.NewServer(observer.DefaultQueue)
		addr, err := obs.Start(cfg.Server.Observer)
		if err != nil {
			return err
		}
		defer obs.Close()

		observerAddr = fmt.Sprintf("ws://%s/ws", addr)
		srv.OnSnapshot(func(snap sim.Snapshot) {
			obs.Publish(observer.FromSim(snap))
		})
	}

	pterm.DefaultTable.WithData(pterm.TableData{
		{"Listen", peer.LocalAddr().String()},
		{"Protocol", cfg.ProtocolID()},
		{"Tick rate", strconv.Itoa(cfg.Server.TickRate) + " Hz"},
		{"Broadcast", cfg.Server.Broadcast},
		{"Observer", observerAddr},
	}).Render()
	pterm.Println()

	util.StartStatsReporter(ctx)
	util.LogSuccess("server running, waiting for players")

	// ── 3. Tick loop ───────────────────────────────────────────────────
	if err := sim.Run(ctx, cfg.Server.TickRate, srv); err != nil {
		return fmt.Errorf("server stopped at tick %d: %w", srv.TickCount(), err)
	}

	util.LogInfo("server stopped after %d ticks with %d players", srv.TickCount(), len(srv.Players()))
	return nil
}
