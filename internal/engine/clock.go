package engine

import "sync/atomic"

// Sequence is a monotonic logical clock for event ordering.
//
// Every processed event is stamped with a strictly increasing seq number,
// so traces and logs show processing order independent of wall-clock
// resolution. Wall-clock time (for idle decay) comes from binding.Clock.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// However, the Engine's single-writer design means only one goroutine
// typically calls Next().
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a new sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence starting at start.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and increments the clock.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
