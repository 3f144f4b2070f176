// Package config loads the YAML configuration shared by the server and
// client commands.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/sim"
	"github.com/1ureka/blockgame/internal/transport"
)

// Config is the whole configuration file. Missing keys keep the values of
// Default.
type Config struct {
	Protocol  Protocol  `yaml:"protocol"`
	Server    Server    `yaml:"server"`
	Client    Client    `yaml:"client"`
	Transport Transport `yaml:"transport"`
}

// Protocol names the handshake identifier.
type Protocol struct {
	Namespace string `yaml:"namespace"`
	Version   string `yaml:"version"`
}

// Server configures the authoritative process.
type Server struct {
	Bind      string  `yaml:"bind"`
	TickRate  int     `yaml:"tick_rate"`
	Speed     float32 `yaml:"speed"`
	Broadcast string  `yaml:"broadcast"` // "self" or "all"
	Observer  string  `yaml:"observer"`  // WebSocket feed address, empty to disable
}

// Client configures a participant.
type Client struct {
	Server   string `yaml:"server"`
	TickRate int    `yaml:"tick_rate"`
}

// Transport tunes the connection layer.
type Transport struct {
	Timeout            time.Duration `yaml:"timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ResendInterval     time.Duration `yaml:"resend_interval"`
	MaxPendingReliable int           `yaml:"max_pending_reliable"`
	RecvQueue          int           `yaml:"recv_queue"`
	EventQueue         int           `yaml:"event_queue"`
	Malformed          Malformed     `yaml:"malformed"`
}

// Malformed is the policy for connections that keep sending garbage.
type Malformed struct {
	Policy string  `yaml:"policy"` // "drop" or "disconnect"
	Rate   float64 `yaml:"rate"`   // tolerated per second
	Burst  int     `yaml:"burst"`
}

// DefaultPort is the well-known server port.
const DefaultPort = 25566

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Protocol: Protocol{
			Namespace: protocol.DefaultNamespace,
			Version:   protocol.DefaultVersion,
		},
		Server: Server{
			Bind:      fmt.Sprintf("0.0.0.0:%d", DefaultPort),
			TickRate:  30,
			Speed:     2.0,
			Broadcast: string(sim.BroadcastAll),
		},
		Client: Client{
			Server:   fmt.Sprintf("127.0.0.1:%d", DefaultPort),
			TickRate: 60,
		},
		Transport: Transport{
			Timeout:            transport.DefaultTimeout,
			PingInterval:       transport.DefaultPingInterval,
			ResendInterval:     transport.DefaultResendInterval,
			MaxPendingReliable: transport.DefaultMaxPendingReliable,
			RecvQueue:          transport.DefaultRecvQueue,
			EventQueue:         transport.DefaultEventQueue,
			Malformed: Malformed{
				Policy: string(transport.PolicyDrop),
				Rate:   transport.DefaultMalformedRate,
				Burst:  transport.DefaultMalformedBurst,
			},
		},
	}
}

// Load reads path over Default and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Protocol.Namespace != "", "protocol.namespace is empty")
	check(c.Protocol.Version != "", "protocol.version is empty")

	check(c.Server.TickRate > 0, "server.tick_rate must be positive, got %d", c.Server.TickRate)
	check(c.Server.Speed >= 0, "server.speed must not be negative, got %v", c.Server.Speed)
	check(c.Server.Broadcast == string(sim.BroadcastSelf) || c.Server.Broadcast == string(sim.BroadcastAll),
		"server.broadcast must be %q or %q, got %q", sim.BroadcastSelf, sim.BroadcastAll, c.Server.Broadcast)
	check(c.Client.TickRate > 0, "client.tick_rate must be positive, got %d", c.Client.TickRate)

	t := c.Transport
	check(t.Timeout > 0, "transport.timeout must be positive")
	check(t.PingInterval > 0 && t.PingInterval < t.Timeout, "transport.ping_interval must be below the timeout")
	check(t.ResendInterval > 0 && t.ResendInterval < t.Timeout, "transport.resend_interval must be below the timeout")
	check(t.MaxPendingReliable > 0 && t.MaxPendingReliable < 1024,
		"transport.max_pending_reliable must be in 1..1023, got %d", t.MaxPendingReliable)
	check(t.RecvQueue > 0, "transport.recv_queue must be positive")
	check(t.EventQueue > 0, "transport.event_queue must be positive")
	check(t.Malformed.Policy == string(transport.PolicyDrop) || t.Malformed.Policy == string(transport.PolicyDisconnect),
		"transport.malformed.policy must be %q or %q, got %q", transport.PolicyDrop, transport.PolicyDisconnect, t.Malformed.Policy)
	check(t.Malformed.Rate > 0, "transport.malformed.rate must be positive")
	check(t.Malformed.Burst > 0, "transport.malformed.burst must be positive")

	return errors.Join(errs...)
}

// ProtocolID returns the handshake identifier, e.g. "blockgame-0.1.0".
func (c Config) ProtocolID() string {
	return protocol.ProtocolID(c.Protocol.Namespace, c.Protocol.Version)
}

// TransportOptions builds Peer options. bind is empty for a client.
func (c Config) TransportOptions(bind string) transport.Options {
	t := c.Transport
	return transport.Options{
		Bind:               bind,
		ProtocolID:         c.ProtocolID(),
		Timeout:            t.Timeout,
		PingInterval:       t.PingInterval,
		ResendInterval:     t.ResendInterval,
		MaxPendingReliable: t.MaxPendingReliable,
		RecvQueue:          t.RecvQueue,
		EventQueue:         t.EventQueue,
		MalformedPolicy:    transport.MalformedPolicy(t.Malformed.Policy),
		MalformedRate:      t.Malformed.Rate,
		MalformedBurst:     t.Malformed.Burst,
	}
}

// SimServer builds the authoritative simulation settings.
func (c Config) SimServer() sim.ServerConfig {
	return sim.ServerConfig{
		TickRate:  c.Server.TickRate,
		Speed:     c.Server.Speed,
		Broadcast: sim.BroadcastMode(c.Server.Broadcast),
		Spawn:     sim.DefaultSpawn,
	}
}

// SimClient builds client settings for an already resolved server address.
// The client predicts with the server's speed.
func (c Config) SimClient(server netip.AddrPort) sim.ClientConfig {
	return sim.ClientConfig{
		Server:   server,
		TickRate: c.Client.TickRate,
		Speed:    c.Server.Speed,
		Spawn:    sim.DefaultSpawn,
	}
}
