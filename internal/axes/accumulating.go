package axes

import "github.com/roach88/touchy/internal/ir"

// Accumulating exposes running sums with no gating.
type Accumulating struct {
	tracker *Tracker
}

// NewAccumulating returns an empty accumulator.
func NewAccumulating() *Accumulating {
	return &Accumulating{tracker: NewTracker()}
}

// Value folds s in and returns the cumulative (x, y, z) totals.
func (a *Accumulating) Value(s Sample) Sample {
	a.tracker.Update(s)
	return a.Total()
}

// Total returns the cumulative (x, y, z) totals.
func (a *Accumulating) Total() Sample {
	out := make(Sample, len(ir.Axes))
	for _, axis := range ir.Axes {
		out[axis] = a.tracker.State(axis).Total
	}
	return out
}

// Reset zeroes the totals of every axis.
func (a *Accumulating) Reset() {
	for _, axis := range ir.Axes {
		a.tracker.Reset(axis)
	}
}
