package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, " 0.0   B"},
		{99, "99.0   B"},
		{1536, " 1.5 KiB"},
		{100 * 1024, " 0.1 MiB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.in)
			if got != tt.want {
				t.Errorf("formatBytes(%v) = %q, want %q", tt.in, got, tt.want)
			}
			if len(got) != 8 {
				t.Errorf("formatBytes(%v) is %d chars, want 8", tt.in, len(got))
			}
		})
	}
}

func TestSnapshotDelta(t *testing.T) {
	prev := snapshot{pktSent: 10, bytesSent: 1000, resent: 1}
	cur := snapshot{pktSent: 30, bytesSent: 3000, resent: 4, opened: 2}

	d := cur.delta(prev)
	if d.pktSent != 20 || d.bytesSent != 2000 || d.resent != 3 || d.opened != 2 {
		t.Errorf("delta = %+v", d)
	}

	line := formatStats(d, 10)
	for _, want := range []string{"2 pkt/s", "Resend: 3", "Conn:  2↑"} {
		if !strings.Contains(line, want) {
			t.Errorf("formatStats = %q, missing %q", line, want)
		}
	}
}

func TestStatsCounters(t *testing.T) {
	before := takeSnapshot()

	Stats.AddSent(100)
	Stats.AddRecv(40)
	Stats.AddDropped()
	Stats.AddMalformed()
	Stats.AddResend()
	Stats.AddConn()
	Stats.RemoveConn()

	d := takeSnapshot().delta(before)
	want := snapshot{
		opened: 1, closed: 1,
		pktSent: 1, pktRecv: 1,
		bytesSent: 100, bytesRecv: 40,
		dropped: 1, malformed: 1,
		resent: 1,
	}
	if d != want {
		t.Errorf("delta = %+v, want %+v", d, want)
	}
}

func TestSetLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	prev := pterm.DefaultLogger.Writer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(prev)
		pterm.DefaultLogger.Level = pterm.LogLevelInfo
	})

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	LogInfo("hidden %d", 1)
	LogWarning("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden 1") || !strings.Contains(out, "shown 2") {
		t.Errorf("unexpected log output %q", out)
	}

	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel should reject unknown levels")
	}
}
