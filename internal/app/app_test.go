package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/1ureka/blockgame/internal/config"
	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/sim"
	"github.com/1ureka/blockgame/internal/transport"
)

func TestServerAndClientConverge(t *testing.T) {
	cfg := config.Default()

	srvPeer, err := transport.Start(cfg.TransportOptions("127.0.0.1:0"))
	if err != nil {
		t.Fatalf("server Start failed: %v", err)
	}
	defer srvPeer.Stop()

	cliPeer, err := transport.Start(cfg.TransportOptions(""))
	if err != nil {
		t.Fatalf("client Start failed: %v", err)
	}
	defer cliPeer.Stop()

	srv := sim.NewServer(srvPeer, cfg.SimServer())
	cli := sim.NewClient(cliPeer, cfg.SimClient(srvPeer.LocalAddr()))
	if err := cli.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	tickBoth := func(cond func() bool) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			if err := srv.Tick(); err != nil {
				t.Fatalf("server Tick failed: %v", err)
			}
			if err := cli.Tick(); err != nil {
				t.Fatalf("client Tick failed: %v", err)
			}
			if cond() {
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
		t.Fatal("timed out")
	}

	tickBoth(func() bool {
		id, ok := cli.PlayerID()
		return ok && id == 1
	})

	cli.SetInput(protocol.Vec2{X: 1})
	for i := 0; i < 20; i++ {
		tickBoth(func() bool { return true })
	}
	cli.SetInput(protocol.Vec2{})

	// With input released both sides settle on the server's position.
	tickBoth(func() bool {
		players := srv.Players()
		return len(players) == 1 && players[0].Input == (protocol.Vec2{}) && cli.Position() == players[0].Position
	})
	if pos := srv.Players()[0].Position; pos.X <= sim.DefaultSpawn.X {
		t.Errorf("server position %v did not move along +x", pos)
	}
}

func TestRunClientNoServer(t *testing.T) {
	// Reserve a port with nothing answering on it.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	defer conn.Close()

	cfg := config.Default()
	cfg.Client.Server = conn.LocalAddr().String()
	cfg.Transport.Timeout = 300 * time.Millisecond
	cfg.Transport.PingInterval = 100 * time.Millisecond
	cfg.Transport.ResendInterval = 50 * time.Millisecond

	err = RunClient(context.Background(), cfg, protocol.Vec2{}, 5*time.Second)
	if !errors.Is(err, ErrNoServer) {
		t.Errorf("RunClient = %v, want ErrNoServer", err)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Bind = "127.0.0.1:0"

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := RunServer(ctx, cfg); err != nil {
		t.Errorf("RunServer = %v, want nil", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.TickRate = 0

	if err := RunServer(context.Background(), cfg); err == nil {
		t.Error("RunServer should reject an invalid config")
	}
	if err := RunClient(context.Background(), cfg, protocol.Vec2{}, 0); err == nil {
		t.Error("RunClient should reject an invalid config")
	}
}

func TestResolveServer(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"127.0.0.1:25566", "127.0.0.1:25566", true},
		{fmt.Sprintf("[::ffff:127.0.0.1]:%d", 4000), "127.0.0.1:4000", true},
		{"127.0.0.1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveServer(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("ResolveServer(%q) error = %v", tt.in, err)
			}
			if tt.ok && got.String() != tt.want {
				t.Errorf("ResolveServer(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
