package axes

import (
	"math"

	"github.com/roach88/touchy/internal/ir"
)

// Sample is one input reading: axis name to value.
type Sample map[ir.Axis]float64

// AxisState is the running state of one axis.
type AxisState struct {
	Last   float64 // most recent sample
	Delta  float64 // previous Last minus the most recent sample
	Total  float64 // running sum of samples
	Travel float64 // running sum of |Delta|
}

// Tracker keeps AxisState for every axis it has been fed.
// Axes start at zero, so the first sample's travel is its magnitude.
type Tracker struct {
	axes map[ir.Axis]*AxisState
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{axes: make(map[ir.Axis]*AxisState)}
}

// Update folds a sample into the running state.
func (t *Tracker) Update(s Sample) {
	for axis, v := range s {
		st := t.state(axis)
		d := st.Last - v
		st.Last = v
		st.Delta = d
		st.Total += v
		st.Travel += math.Abs(d)
	}
}

// State returns a copy of an axis's state. Unseen axes report zero.
func (t *Tracker) State(axis ir.Axis) AxisState {
	if st, ok := t.axes[axis]; ok {
		return *st
	}
	return AxisState{}
}

// Reset zeroes the running totals of one axis. Last is kept so the next
// delta is measured from the real previous position.
func (t *Tracker) Reset(axis ir.Axis) {
	if st, ok := t.axes[axis]; ok {
		st.Total = 0
		st.Travel = 0
	}
}

func (t *Tracker) state(axis ir.Axis) *AxisState {
	st, ok := t.axes[axis]
	if !ok {
		st = &AxisState{}
		t.axes[axis] = st
	}
	return st
}
