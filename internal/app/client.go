package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/1ureka/blockgame/internal/config"
	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/sim"
	"github.com/1ureka/blockgame/internal/transport"
	"github.com/1ureka/blockgame/internal/util"
)

// ErrNoServer is returned when the handshake gets no reply in time.
var ErrNoServer = errors.New("no reply from server")

// ErrConnectionLost is returned when an established connection drops.
var ErrConnectionLost = errors.New("connection to server lost")

// RunClient connects to the configured server and holds input steady until
// ctx is cancelled or duration elapses (zero runs until cancelled):
//  1. Resolve the server and bind an ephemeral UDP peer
//  2. Handshake
//  3. Tick prediction at the client rate, reporting position once a second
func RunClient(ctx context.Context, cfg config.Config, input protocol.Vec2, duration time.Duration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── 1. Transport ───────────────────────────────────────────────────
	server, err := ResolveServer(cfg.Client.Server)
	if err != nil {
		return err
	}

	peer, err := transport.Start(cfg.TransportOptions(""))
	if err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}
	defer peer.Stop()

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	// ── 2. Handshake ───────────────────────────────────────────────────
	client := sim.NewClient(peer, cfg.SimClient(server))
	client.SetInput(input)
	if err := client.Connect(); err != nil {
		return err
	}
	util.LogInfo("connecting to %s (protocol %s)", server, cfg.ProtocolID())

	// ── 3. Tick loop ───────────────────────────────────────────────────
	var (
		started   = time.Now()
		connected bool
		ticks     int
	)
	step := func() error {
		if err := client.Tick(); err != nil {
			return err
		}
		ticks++

		switch {
		case client.Connected():
			connected = true
		case connected:
			return ErrConnectionLost
		case time.Since(started) > cfg.Transport.Timeout:
			return fmt.Errorf("%w %s within %v", ErrNoServer, server, cfg.Transport.Timeout)
		}

		if connected && ticks%cfg.Client.TickRate == 0 {
			id, _ := client.PlayerID()
			util.LogInfo("player %d at %v, %d others in view", id, client.Position(), len(client.Remotes()))
		}
		return nil
	}

	if err := sim.RunFixed(ctx, cfg.Client.TickRate, step); err != nil {
		return err
	}

	if connected {
		// Tell the server now instead of letting it time us out.
		if err := peer.Disconnect(server); err != nil && !errors.Is(err, transport.ErrNoConnection) {
			util.LogWarning("disconnect failed: %v", err)
		}
	}
	util.LogInfo("final position %v", client.Position())
	return nil
}

// ResolveServer turns host:port into the address the transport reports
// events under.
func ResolveServer(hostport string) (netip.AddrPort, error) {
	addr, err := net.ResolveUDPAddr("udp", hostport)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("failed to resolve server %s: %w", hostport, err)
	}
	ap := addr.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}
