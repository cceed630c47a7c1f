package engine

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/touchy/internal/axes"
	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/midi"
	"github.com/roach88/touchy/internal/scale"
	"github.com/roach88/touchy/internal/store"
)

// Domains maps each axis to the numeric range its samples span.
type Domains map[ir.Axis][2]float64

// Sample is one keyed input reading as the resolver sees it.
type Sample struct {
	Key     ir.Key
	Values  axes.Sample
	Domains Domains
}

// slot identifies a stored rule: the key it is saved under and its
// position in the row.
type slot struct {
	key ir.Key
	pos int
}

type candidate struct {
	pos  int
	snap ir.Snapshot
}

// Resolver turns samples into MIDI messages using the rules saved for the
// sample's key.
//
// Scales and threshold gates are cached per slot. A cached scale is
// rebuilt when the domain or range it was built for changes; a cached gate
// is rebuilt when its axis or threshold changes.
//
// Resolver is not safe for concurrent use; the engine calls it from its
// Run loop only.
type Resolver struct {
	store    *store.Store
	switches *Switches
	emit     func(midi.Message) error

	scales map[slot]scale.Linear
	gates  map[slot]*axes.Threshold

	// strokes holds the sources between Saturate and ResetGates. A gate
	// first built mid-stroke starts saturated, as it would have been at
	// the press.
	strokes map[string]bool
}

// NewResolver creates a resolver reading rules from s. emit receives every
// message the resolver produces; sw is consulted for the master output
// switch on every pass.
func NewResolver(s *store.Store, sw *Switches, emit func(midi.Message) error) *Resolver {
	return &Resolver{
		store:    s,
		switches: sw,
		emit:     emit,
		scales:   make(map[slot]scale.Linear),
		gates:    make(map[slot]*axes.Threshold),
		strokes:  make(map[string]bool),
	}
}

// Resolve runs one resolution pass. Rules that fail are skipped; their
// errors are logged and returned, but never stop the other rules.
func (r *Resolver) Resolve(s Sample) []error {
	if !r.switches.MIDIOutput {
		return nil
	}

	key := s.Key.Canonical()
	snaps, ok := r.store.Lookup(key)
	if !ok {
		return nil
	}

	var rules []candidate
	for pos, snap := range snaps {
		if !snap.Enabled || !snap.Valid() {
			continue
		}
		if _, ok := s.Values[snap.Axis]; !ok {
			continue
		}
		rules = append(rules, candidate{pos: pos, snap: snap})
	}
	slices.SortStableFunc(rules, func(a, b candidate) int {
		return cmp.Compare(*a.snap.Channel, *b.snap.Channel)
	})

	var errs []error
	for start := 0; start < len(rules); {
		end := start + 1
		for end < len(rules) && *rules[end].snap.Channel == *rules[start].snap.Channel {
			end++
		}
		errs = append(errs, r.resolveChannel(key, s, rules[start:end])...)
		start = end
	}

	for _, err := range errs {
		slog.Warn("rule skipped", "key", key.String(), "error", err)
		var re *ResolveError
		if errors.As(err, &re) {
			resolveErrors.WithLabelValues(string(re.Code)).Inc()
		}
	}
	return errs
}

// resolveChannel handles one channel group: the note pairing first, then
// every other rule in row order.
func (r *Resolver) resolveChannel(key ir.Key, s Sample, group []candidate) []error {
	var (
		note, velocity *candidate
		controls       []candidate
		errs           []error
	)
	for i := range group {
		c := &group[i]
		switch {
		case c.snap.Kind() == ir.KindStepped:
			controls = append(controls, *c)
		case c.snap.MessageType == ir.MessageNote:
			note = c
		case c.snap.MessageType == ir.MessageVelocity:
			velocity = c
		default:
			controls = append(controls, *c)
		}
	}

	if note != nil {
		if err := r.resolveNote(key, s, *note, velocity); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range controls {
		var err error
		if c.snap.Kind() == ir.KindStepped {
			err = r.resolveStep(key, s, c)
		} else {
			err = r.resolveControl(key, s, c)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// resolveNote sends one note_on for the channel. A note that scales to zero,
// or clamps to zero, sends nothing.
func (r *Resolver) resolveNote(key ir.Key, s Sample, note candidate, velocity *candidate) error {
	v, ok, err := r.value(key, s, note)
	if err != nil {
		return newResolveError(key, note.pos, ErrCodeMessage, err)
	}
	if !ok || v == 0 {
		return nil
	}
	if v = note.snap.Clamp(v); v == 0 {
		return nil
	}

	vel := midi.DefaultVelocity
	if velocity != nil {
		vv, ok, err := r.value(key, s, *velocity)
		if err != nil {
			// The note still sounds, at the default velocity.
			slog.Warn("velocity skipped", "key", key.String(), "position", velocity.pos, "error", err)
		} else if ok && vv != 0 {
			if vv = velocity.snap.Clamp(vv); vv != 0 {
				vel = vv
			}
		}
	}

	if err := r.emit(midi.NoteOn(*note.snap.Channel, v, vel)); err != nil {
		return newResolveError(key, note.pos, ErrCodeSend, err)
	}
	return nil
}

func (r *Resolver) resolveControl(key ir.Key, s Sample, c candidate) error {
	v, ok, err := r.value(key, s, c)
	if err != nil {
		return newResolveError(key, c.pos, ErrCodeMessage, err)
	}
	if !ok || v == 0 {
		return nil
	}
	if v = c.snap.Clamp(v); v == 0 {
		return nil
	}

	m, ok, err := messageFor(c.snap, v)
	if err != nil {
		return newResolveError(key, c.pos, ErrCodeMessage, err)
	}
	if !ok {
		return nil
	}
	if err := r.emit(m); err != nil {
		return newResolveError(key, c.pos, ErrCodeSend, err)
	}
	return nil
}

// resolveStep adds the scaled sample to the rule's running value and
// writes it back. Nothing is sent from here; the rule's value listener
// does that.
func (r *Resolver) resolveStep(key ir.Key, s Sample, c candidate) error {
	rng := [2]int{*c.snap.RangeFrom, *c.snap.RangeTo}
	domain := [2]float64{float64(rng[0]), float64(rng[1])}

	lin, err := r.scaleFor(slot{key, c.pos}, domain, rng)
	if err != nil {
		return newResolveError(key, c.pos, ErrCodeMessage, err)
	}
	delta := lin.Apply(s.Values[c.snap.Axis] * float64(*c.snap.Step))
	if delta == 0 {
		return nil
	}

	next := c.snap.Clamp(c.snap.Value + delta)
	if err := r.store.SetValue(key, c.pos, next); err != nil {
		return newResolveError(key, c.pos, ErrCodeStore, err)
	}
	return nil
}

// value gates and scales the sample for a continuous rule. ok is false
// when the threshold held the sample back.
func (r *Resolver) value(key ir.Key, s Sample, c candidate) (int, bool, error) {
	axis := c.snap.Axis
	domain, ok := s.Domains[axis]
	if !ok {
		return 0, false, fmt.Errorf("axis %s: %w", axis, ErrMissingDomain)
	}

	sl := slot{key, c.pos}
	lin, err := r.scaleFor(sl, domain, [2]int{*c.snap.RangeFrom, *c.snap.RangeTo})
	if err != nil {
		return 0, false, err
	}

	threshold := *c.snap.Threshold
	if c.snap.MessageType == ir.MessageVelocity {
		threshold = 0
	}
	passed, ok := r.gateFor(sl, axis, threshold).Value(s.Values)
	if !ok {
		gatedSamples.Inc()
		return 0, false, nil
	}
	return lin.Apply(passed[axis]), true, nil
}

func (r *Resolver) scaleFor(sl slot, domain [2]float64, rng [2]int) (scale.Linear, error) {
	if lin, ok := r.scales[sl]; ok && lin.Matches(domain, rng) {
		return lin, nil
	}
	lin, err := scale.New(domain, rng)
	if err != nil {
		delete(r.scales, sl)
		return scale.Linear{}, err
	}
	r.scales[sl] = lin
	return lin, nil
}

func (r *Resolver) gateFor(sl slot, axis ir.Axis, threshold float64) *axes.Threshold {
	if g, ok := r.gates[sl]; ok && g.Gate() == axis && g.Threshold() == threshold {
		return g
	}
	g := axes.NewThreshold(axis, threshold)
	if r.strokes[sl.key.Source] {
		g.Saturate()
	}
	r.gates[sl] = g
	return g
}

// Saturate primes the gates of source so their next sample passes.
// Called at the start of a stroke.
func (r *Resolver) Saturate(source string) {
	r.strokes[source] = true
	for sl, g := range r.gates {
		if sl.key.Source == source {
			g.Saturate()
		}
	}
}

// ResetGates zeroes the gating axis of every gate of source. Called at the
// end of a stroke.
func (r *Resolver) ResetGates(source string) {
	delete(r.strokes, source)
	for sl, g := range r.gates {
		if sl.key.Source == source {
			g.Reset(g.Gate())
		}
	}
}

// ClearGates drops every gate; they are rebuilt on the next sample.
func (r *Resolver) ClearGates() {
	clear(r.gates)
}

// ClearScales drops every cached scale.
func (r *Resolver) ClearScales() {
	clear(r.scales)
}

// Gate returns the gate cached for the rule at position under key.
func (r *Resolver) Gate(key ir.Key, position int) (*axes.Threshold, bool) {
	g, ok := r.gates[slot{key.Canonical(), position}]
	return g, ok
}
