package main

import (
	"testing"

	"github.com/1ureka/blockgame/internal/protocol"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		raw  string
		want protocol.Vec2
		ok   bool
	}{
		{"0,0", protocol.Vec2{}, true},
		{"1,0", protocol.Vec2{X: 1}, true},
		{" -0.5 , 1 ", protocol.Vec2{X: -0.5, Y: 1}, true},
		{"1", protocol.Vec2{}, false},
		{"a,b", protocol.Vec2{}, false},
		{"", protocol.Vec2{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseInput(tt.raw)
			if (err == nil) != tt.ok {
				t.Fatalf("parseInput(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseInput(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"server", "client"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not found: %v", name, err)
		}
	}

	client, _, _ := root.Find([]string{"client"})
	for _, flag := range []string{"server", "input", "duration", "config", "debug"} {
		if client.Flag(flag) == nil {
			t.Errorf("client is missing --%s", flag)
		}
	}
}
