package transport

import (
	"container/heap"
	"time"
)

// pending is one unacknowledged reliable datagram.
type pending struct {
	seq   uint16
	data  []byte // fully encoded envelope, resent as is
	due   time.Time
	sends int
}

// retryBuffer holds reliable datagrams until they are acked. Entries are
// keyed by seq; a min-heap on the resend deadline finds the ones to resend.
// Acked entries stay in the heap until they reach the top and are skipped.
//
// Seqs are added in issue order. low is the oldest one still outstanding;
// Add refuses a seq dedupWindow or more past it, so the receiver's window
// always covers everything in flight.
type retryBuffer struct {
	limit   int
	low     uint16
	entries map[uint16]*pending
	queue   pendingHeap
}

func newRetryBuffer(limit int) *retryBuffer {
	return &retryBuffer{
		limit:   limit,
		entries: make(map[uint16]*pending),
	}
}

// Len returns the number of unacknowledged datagrams.
func (b *retryBuffer) Len() int { return len(b.entries) }

// Add stores data under seq, first resent at due. It returns false when the
// buffer is already at its limit or seq is too far past the oldest entry.
func (b *retryBuffer) Add(seq uint16, data []byte, due time.Time) bool {
	if len(b.entries) >= b.limit {
		return false
	}
	if len(b.entries) == 0 {
		b.low = seq
	} else if seq-b.low >= dedupWindow {
		return false
	}
	p := &pending{seq: seq, data: data, due: due, sends: 1}
	b.entries[seq] = p
	heap.Push(&b.queue, p)
	return true
}

// Ack removes seq. It reports whether seq was outstanding.
func (b *retryBuffer) Ack(seq uint16) bool {
	if _, ok := b.entries[seq]; !ok {
		return false
	}
	delete(b.entries, seq)
	for len(b.entries) > 0 {
		if _, ok := b.entries[b.low]; ok {
			break
		}
		b.low++
	}
	return true
}

// Due returns every outstanding entry whose deadline is at or before now and
// reschedules each one interval later. The caller retransmits them.
func (b *retryBuffer) Due(now time.Time, interval time.Duration) []*pending {
	var out []*pending
	for b.queue.Len() > 0 && !b.queue[0].due.After(now) {
		p := heap.Pop(&b.queue).(*pending)
		if b.entries[p.seq] != p {
			continue // acked
		}
		p.due = now.Add(interval)
		p.sends++
		out = append(out, p)
	}
	for _, p := range out {
		heap.Push(&b.queue, p)
	}
	return out
}

// ---------------------------------------------------------------------------
// pendingHeap implements a min-heap sorted by resend deadline.
// ---------------------------------------------------------------------------

type pendingHeap []*pending

func (h pendingHeap) Len() int            { return len(h) }
func (h pendingHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h pendingHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x interface{}) { *h = append(*h, x.(*pending)) }

func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[:n-1]
	return item
}
