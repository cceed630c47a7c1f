package engine

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/touchy/internal/axes"
	"github.com/roach88/touchy/internal/ir"
)

// InputKind names a raw input event.
type InputKind string

const (
	// InputMotion is pointer movement; with a button held it is a drag.
	InputMotion InputKind = "motion"
	// InputPress starts a stroke.
	InputPress InputKind = "press"
	// InputRelease ends a stroke.
	InputRelease InputKind = "release"
	// InputScroll is wheel movement, one notch per unit.
	InputScroll InputKind = "scroll"
	// InputTablet is a pen sample carrying position and pressure.
	InputTablet InputKind = "tablet"
)

// WheelDomain is the domain of both scroll axes.
var WheelDomain = [2]float64{-1, 1}

// PressureDomain is the default domain of the pen pressure axis.
var PressureDomain = [2]float64{0, 1}

// Input is one raw event from the pointer capture layer.
//
// Mouse events leave Source and Cursor empty. Tablet events name the
// tablet in Source and the pen in Cursor; Button is the pressed-button
// set as reported by the driver. Relative samples carry deltas and are
// integrated into absolute positions before resolution.
type Input struct {
	Kind     InputKind           `json:"kind" yaml:"kind"`
	Source   string              `json:"source,omitempty" yaml:"source,omitempty"`
	Cursor   string              `json:"cursor,omitempty" yaml:"cursor,omitempty"`
	Button   string              `json:"button,omitempty" yaml:"button,omitempty"`
	Values   map[ir.Axis]float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Domains  Domains             `json:"domains,omitempty" yaml:"domains,omitempty"`
	Relative bool                `json:"relative,omitempty" yaml:"relative,omitempty"`
}

// Validate checks the event is well-formed.
func (in Input) Validate() error {
	switch in.Kind {
	case InputMotion, InputPress, InputRelease, InputScroll:
	case InputTablet:
		if in.Source == "" || in.Cursor == "" {
			return fmt.Errorf("tablet input needs source and cursor")
		}
	default:
		return fmt.Errorf("unknown input kind %q", in.Kind)
	}
	for axis := range in.Values {
		if !slices.Contains(ir.Axes, axis) {
			return fmt.Errorf("unknown axis %q", axis)
		}
	}
	return nil
}

// Mouse reports whether the event comes from the mouse rather than a
// tablet.
func (in Input) Mouse() bool {
	return in.Kind != InputTablet
}

// String renders the event for the input log.
func (in Input) String() string {
	var b strings.Builder
	b.WriteString(string(in.Kind))
	if in.Kind == InputTablet {
		fmt.Fprintf(&b, " %s/%s", in.Source, in.Cursor)
	}
	if in.Button != "" {
		fmt.Fprintf(&b, " button=%s", in.Button)
	}
	keys := slices.Sorted(maps.Keys(in.Values))
	for _, axis := range keys {
		fmt.Fprintf(&b, " %s=%s", axis, strconv.FormatFloat(in.Values[axis], 'g', -1, 64))
	}
	if in.Relative {
		b.WriteString(" relative")
	}
	return b.String()
}

// inputState is the stroke bookkeeping the input layer keeps between
// events.
type inputState struct {
	// lastButtons is the tablet button set of the previous tablet sample;
	// a change starts a new stroke.
	lastButtons *string
	// integrators turn relative samples into positions, per source/cursor.
	integrators map[string]*axes.Accumulating
}

// handleInput applies the stroke rules for in and resolves the sample it
// carries, if any.
func (e *Engine) handleInput(in Input) ([]error, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Mouse() && !e.switches.Mouse {
		return nil, nil
	}
	if !in.Mouse() && !e.switches.Tablet {
		return nil, nil
	}
	if e.switches.LogInput {
		e.sink.Log(in.String())
	}

	switch in.Kind {
	case InputRelease:
		e.resolver.ResetGates(ir.MouseSource)
		return nil, nil
	case InputPress:
		e.resolver.Saturate(ir.MouseSource)
	case InputTablet:
		if e.input.lastButtons == nil || *e.input.lastButtons != in.Button {
			e.resolver.Saturate(ir.NewKey(in.Source, in.Cursor, in.Button).Source)
		}
		buttons := in.Button
		e.input.lastButtons = &buttons
	}

	return e.resolver.Resolve(e.sampleFor(in)), nil
}

// sampleFor keys the event and fills in the domains it implies.
func (e *Engine) sampleFor(in Input) Sample {
	button := in.Button
	if button == "" {
		button = "0"
	}

	var key ir.Key
	switch in.Kind {
	case InputScroll:
		key = ir.WheelKey
	case InputTablet:
		key = ir.NewKey(in.Source, in.Cursor, button)
	default:
		key = ir.NewKey(ir.MouseSource, ir.MouseCursor, button)
	}

	values := axes.Sample(maps.Clone(in.Values))
	if in.Relative {
		values = e.integrate(key, values)
	}

	domains := make(Domains, len(values))
	for axis := range values {
		switch d, ok := in.Domains[axis]; {
		case ok:
			domains[axis] = d
		case in.Kind == InputScroll:
			domains[axis] = WheelDomain
		case in.Kind == InputTablet && axis == ir.AxisZ:
			domains[axis] = PressureDomain
		default:
			if d, ok := e.domains[axis]; ok {
				domains[axis] = d
			}
		}
	}

	return Sample{Key: key, Values: values, Domains: domains}
}

// integrate folds relative deltas into running positions for the event's
// source and cursor, and returns the positions of the axes it carried.
func (e *Engine) integrate(key ir.Key, deltas axes.Sample) axes.Sample {
	id := key.Source + "/" + key.Cursor
	acc, ok := e.input.integrators[id]
	if !ok {
		acc = axes.NewAccumulating()
		e.input.integrators[id] = acc
	}
	total := acc.Value(deltas)

	out := make(axes.Sample, len(deltas))
	for axis := range deltas {
		out[axis] = total[axis]
	}
	return out
}
