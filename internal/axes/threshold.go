package axes

import "github.com/roach88/touchy/internal/ir"

// Threshold gates samples on the accumulated travel of one axis.
type Threshold struct {
	tracker   *Tracker
	gate      ir.Axis
	threshold float64
}

// NewThreshold gates on the travel of axis gate. A threshold of zero lets
// every sample through.
func NewThreshold(gate ir.Axis, threshold float64) *Threshold {
	return &Threshold{
		tracker:   NewTracker(),
		gate:      gate,
		threshold: threshold,
	}
}

// Gate returns the gating axis.
func (g *Threshold) Gate() ir.Axis { return g.gate }

// Threshold returns the configured threshold.
func (g *Threshold) Threshold() float64 { return g.threshold }

// Value updates the tracker and reports whether the sample passes.
// A passing sample is returned unchanged and clears the gating axis's
// totals; a gated tick returns (nil, false).
func (g *Threshold) Value(s Sample) (Sample, bool) {
	g.tracker.Update(s)
	if g.tracker.State(g.gate).Travel < g.threshold {
		return nil, false
	}
	g.tracker.Reset(g.gate)
	return s, true
}

// Saturate sets every tracked axis's travel to the threshold, so the next
// sample passes regardless of its magnitude. The gating axis is always
// included even before it has been seen.
func (g *Threshold) Saturate() {
	g.tracker.state(g.gate)
	for _, st := range g.tracker.axes {
		st.Travel = g.threshold
	}
}

// Reset zeroes the running totals of one axis.
func (g *Threshold) Reset(axis ir.Axis) {
	g.tracker.Reset(axis)
}

// State exposes the tracker state of an axis.
func (g *Threshold) State(axis ir.Axis) AxisState {
	return g.tracker.State(axis)
}
