package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic/connection counter. The reader goroutine
// and the poll loop both write it, so every field is atomic.
var Stats = &stats{}

type stats struct {
	TotalConns    atomic.Int64 // connections established since process start
	ClosedConns   atomic.Int64 // connections timed out or disconnected
	PacketsSent   atomic.Int64 // datagrams written to the socket
	PacketsRecv   atomic.Int64 // datagrams read from the socket
	BytesSent     atomic.Int64
	BytesRecv     atomic.Int64
	Dropped       atomic.Int64 // datagrams discarded before decoding (queue full, oversized)
	Malformed     atomic.Int64 // envelopes or payloads that failed to decode
	Retransmitted atomic.Int64 // reliable resends
}

func (s *stats) AddConn()      { s.TotalConns.Add(1) }
func (s *stats) RemoveConn()   { s.ClosedConns.Add(1) }
func (s *stats) AddDropped()   { s.Dropped.Add(1) }
func (s *stats) AddMalformed() { s.Malformed.Add(1) }
func (s *stats) AddResend()    { s.Retransmitted.Add(1) }

func (s *stats) AddSent(n int) {
	s.PacketsSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.PacketsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs traffic statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prev snapshot
		for {
			select {
			case <-ticker.C:
				cur := takeSnapshot()
				if cur != prev {
					pterm.DefaultLogger.Info(formatStats(cur.delta(prev), reportInterval.Seconds()))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

type snapshot struct {
	opened, closed       int64
	pktSent, pktRecv     int64
	bytesSent, bytesRecv int64
	dropped, malformed   int64
	resent               int64
}

func takeSnapshot() snapshot {
	return snapshot{
		opened:    Stats.TotalConns.Load(),
		closed:    Stats.ClosedConns.Load(),
		pktSent:   Stats.PacketsSent.Load(),
		pktRecv:   Stats.PacketsRecv.Load(),
		bytesSent: Stats.BytesSent.Load(),
		bytesRecv: Stats.BytesRecv.Load(),
		dropped:   Stats.Dropped.Load(),
		malformed: Stats.Malformed.Load(),
		resent:    Stats.Retransmitted.Load(),
	}
}

func (s snapshot) delta(prev snapshot) snapshot {
	return snapshot{
		opened:    s.opened - prev.opened,
		closed:    s.closed - prev.closed,
		pktSent:   s.pktSent - prev.pktSent,
		pktRecv:   s.pktRecv - prev.pktRecv,
		bytesSent: s.bytesSent - prev.bytesSent,
		bytesRecv: s.bytesRecv - prev.bytesRecv,
		dropped:   s.dropped - prev.dropped,
		malformed: s.malformed - prev.malformed,
		resent:    s.resent - prev.resent,
	}
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats renders one reporting window; per-second rates are d / secs.
func formatStats(d snapshot, secs float64) string {
	return fmt.Sprintf("Out: %s/s %5.0f pkt/s | In: %s/s %5.0f pkt/s | Conn: %2d↑ %2d↓ | Drop: %d Bad: %d Resend: %d",
		formatBytes(float64(d.bytesSent)/secs),
		float64(d.pktSent)/secs,
		formatBytes(float64(d.bytesRecv)/secs),
		float64(d.pktRecv)/secs,
		d.opened,
		d.closed,
		d.dropped,
		d.malformed,
		d.resent,
	)
}
