package transport

// dedupWindow is how many reliable seqs, starting at the oldest one not yet
// delivered, a receiver tracks individually. Senders never let their oldest
// unacked seq fall this far behind the next one they issue.
const dedupWindow = 1024

// sequencedIn implements "latest wins" for the Sequenced tier.
type sequencedIn struct {
	highest uint16
	any     bool
}

// Accept reports whether sn is newer than everything accepted so far and,
// if so, records it.
func (s *sequencedIn) Accept(sn uint16) bool {
	if s.any && !seqNewer(sn, s.highest) {
		return false // stale or duplicate
	}
	s.highest = sn
	s.any = true
	return true
}

// verdict is what the receiver does with one reliable seq.
type verdict uint8

const (
	deliverNew   verdict = iota // first arrival: ack and deliver
	deliverDup                  // delivered before: ack only
	deliverAhead                // beyond the window: no ack, the sender retries
)

// reliableIn deduplicates the Reliable tier. Delivery is in arrival order.
//
// base is the lowest seq not yet delivered; every seq before it has been.
// seen holds one bit per seq in [base, base+dedupWindow), indexed by
// seq modulo the window.
type reliableIn struct {
	base uint16
	seen [dedupWindow / 64]uint64
}

func seenBit(sn uint16) (int, uint64) {
	i := sn % dedupWindow
	return int(i / 64), 1 << (i % 64)
}

// Accept classifies sn and records it when it is new.
func (r *reliableIn) Accept(sn uint16) verdict {
	d := sn - r.base
	if d >= dedupWindow {
		if d >= seqHalf {
			return deliverDup // behind base
		}
		return deliverAhead
	}

	w, m := seenBit(sn)
	if r.seen[w]&m != 0 {
		return deliverDup
	}
	r.seen[w] |= m

	for {
		w, m := seenBit(r.base)
		if r.seen[w]&m == 0 {
			break
		}
		r.seen[w] &^= m
		r.base++
	}
	return deliverNew
}
