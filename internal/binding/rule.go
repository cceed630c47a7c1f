package binding

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roach88/touchy/internal/ir"
)

// RuleID is the stable handle of a rule, unique within the process.
type RuleID int64

var lastRuleID atomic.Int64

func nextRuleID() RuleID {
	return RuleID(lastRuleID.Add(1))
}

// Field names one editable attribute of a rule.
type Field int

const (
	FieldAny Field = iota
	FieldEnabled
	FieldChannel
	FieldMessageType
	FieldControlType
	FieldRangeFrom
	FieldRangeTo
	FieldAxis
	FieldThreshold
	FieldStep
	FieldValue
	FieldPullBack
)

var fieldNames = map[Field]string{
	FieldAny:         "*",
	FieldEnabled:     "enabled",
	FieldChannel:     "channel",
	FieldMessageType: "message_type",
	FieldControlType: "control_type",
	FieldRangeFrom:   "range_from",
	FieldRangeTo:     "range_to",
	FieldAxis:        "axis",
	FieldThreshold:   "threshold",
	FieldStep:        "step",
	FieldValue:       "value",
	FieldPullBack:    "pull_back",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField maps a snake_case field name to its Field.
func ParseField(name string) (Field, error) {
	for f, n := range fieldNames {
		if f != FieldAny && n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown rule field %q", name)
}

// Listener is called after a field of r changed.
type Listener func(r *Rule, f Field)

// Rule is one live axis→MIDI mapping.
//
// Rules are not safe for concurrent use; the engine mutates them from its
// single writer goroutine only.
type Rule struct {
	id       RuleID
	clock    Clock
	snap     ir.Snapshot
	defaults ir.Snapshot

	listeners map[Field][]Listener
	touched   time.Time
}

// NewRule creates a rule initialised to its factory defaults.
func NewRule(defaults ir.Snapshot, clock Clock) *Rule {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Rule{
		id:        nextRuleID(),
		clock:     clock,
		snap:      defaults.Clone(),
		defaults:  defaults.Clone(),
		listeners: make(map[Field][]Listener),
	}
}

// ID returns the rule's stable handle.
func (r *Rule) ID() RuleID { return r.id }

// Snapshot returns a copy of the current values.
func (r *Rule) Snapshot() ir.Snapshot { return r.snap.Clone() }

// Defaults returns a copy of the factory defaults.
func (r *Rule) Defaults() ir.Snapshot { return r.defaults.Clone() }

// Kind reports whether the rule is continuous or stepped.
func (r *Rule) Kind() ir.Kind { return r.snap.Kind() }

// Axis returns the rule's axis.
func (r *Rule) Axis() ir.Axis { return r.snap.Axis }

// Value returns the stepped running value.
func (r *Rule) Value() int { return r.snap.Value }

// PullBack reports whether idle decay is enabled.
func (r *Rule) PullBack() bool { return r.snap.PullBack }

// Touched returns when the value was last mutated by anything other than
// the decay scheduler. The zero time means never.
func (r *Rule) Touched() time.Time { return r.touched }

// Listen registers fn for changes to f. FieldAny receives every change,
// after the field-specific listeners.
func (r *Rule) Listen(f Field, fn Listener) {
	r.listeners[f] = append(r.listeners[f], fn)
}

func (r *Rule) notify(f Field) {
	for _, fn := range r.listeners[f] {
		fn(r, f)
	}
	for _, fn := range r.listeners[FieldAny] {
		fn(r, f)
	}
}

// SetEnabled turns the rule on or off.
func (r *Rule) SetEnabled(v bool) {
	r.snap.Enabled = v
	r.notify(FieldEnabled)
}

// SetChannel sets the MIDI channel; nil marks it absent.
func (r *Rule) SetChannel(v *int) {
	r.snap.Channel = v
	r.notify(FieldChannel)
}

// SetMessageType sets the kind of message the rule sends.
func (r *Rule) SetMessageType(v ir.MessageType) {
	r.snap.MessageType = v
	r.notify(FieldMessageType)
}

// SetControlType sets the controller name used by control rules.
func (r *Rule) SetControlType(v string) {
	r.snap.ControlType = v
	r.notify(FieldControlType)
}

// SetRangeFrom sets the low end of the output range.
func (r *Rule) SetRangeFrom(v *int) {
	r.snap.RangeFrom = v
	r.notify(FieldRangeFrom)
}

// SetRangeTo sets the high end of the output range.
func (r *Rule) SetRangeTo(v *int) {
	r.snap.RangeTo = v
	r.notify(FieldRangeTo)
}

// SetAxis sets the input axis the rule reads.
func (r *Rule) SetAxis(v ir.Axis) {
	r.snap.Axis = v
	r.notify(FieldAxis)
}

// SetThreshold sets the travel a sample needs before it passes.
func (r *Rule) SetThreshold(v *float64) {
	r.snap.Threshold = v
	r.notify(FieldThreshold)
}

// SetStep changes the stepped increment. It has no effect on continuous
// rules, whose shape is fixed by their row.
func (r *Rule) SetStep(v *int) {
	if r.snap.Kind() != ir.KindStepped {
		return
	}
	if v == nil {
		// Keep the rule stepped; a zero step is invalid and skipped.
		v = ir.IntPtr(0)
	}
	r.snap.Step = v
	r.notify(FieldStep)
}

// SetValue changes the stepped running value and stamps the mutation time.
func (r *Rule) SetValue(v int) {
	r.snap.Value = v
	r.touched = r.clock.Now()
	r.notify(FieldValue)
}

// SetValueQuiet changes the value without stamping the mutation time.
// Only the decay scheduler uses it: stamping its own steps would keep the
// rule from ever going idle.
func (r *Rule) SetValueQuiet(v int) {
	r.snap.Value = v
	r.notify(FieldValue)
}

// SetPullBack turns decay of the stepped value toward zero on or off.
func (r *Rule) SetPullBack(v bool) {
	r.snap.PullBack = v
	r.notify(FieldPullBack)
}

// Set applies a textual edit, as typed into a form or config file.
// Numeric text that does not parse leaves the field absent, which makes
// the rule invalid until it is fixed.
func (r *Rule) Set(f Field, text string) error {
	text = strings.TrimSpace(text)
	switch f {
	case FieldEnabled:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("set %s: %w", f, err)
		}
		r.SetEnabled(b)
	case FieldChannel:
		r.SetChannel(ir.ParseInt(text))
	case FieldMessageType:
		mt, ok := ir.ParseMessageType(text)
		if !ok {
			mt = ir.MessageType(text)
		}
		r.SetMessageType(mt)
	case FieldControlType:
		r.SetControlType(text)
	case FieldRangeFrom:
		r.SetRangeFrom(ir.ParseInt(text))
	case FieldRangeTo:
		r.SetRangeTo(ir.ParseInt(text))
	case FieldAxis:
		r.SetAxis(ir.Axis(text))
	case FieldThreshold:
		if r.Kind() == ir.KindStepped {
			return fmt.Errorf("set %s: stepped rules have no threshold", f)
		}
		r.SetThreshold(ir.ParseFloat(text))
	case FieldStep:
		if r.Kind() != ir.KindStepped {
			return fmt.Errorf("set %s: continuous rules have no step", f)
		}
		r.SetStep(ir.ParseInt(text))
	case FieldValue:
		if r.Kind() != ir.KindStepped {
			return fmt.Errorf("set %s: continuous rules have no value", f)
		}
		v := ir.ParseInt(text)
		if v == nil {
			return fmt.Errorf("set %s: %q is not an integer", f, text)
		}
		r.SetValue(*v)
	case FieldPullBack:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("set %s: %w", f, err)
		}
		r.SetPullBack(b)
	default:
		return fmt.Errorf("set %s: not editable", f)
	}
	return nil
}

// Restore replaces every value with s without notifying listeners.
// Used when a row switches identity: the restored values are already what
// the store holds for the new key. The shape (continuous vs stepped) of
// the rule is kept even if s disagrees.
func (r *Rule) Restore(s ir.Snapshot) {
	s = s.Clone()
	if r.snap.Kind() == ir.KindStepped && s.Step == nil {
		s.Step = r.defaults.Clone().Step
	}
	if r.snap.Kind() == ir.KindContinuous {
		s.Step, s.Value, s.PullBack = nil, 0, false
	}
	if s.Value != r.snap.Value {
		r.touched = r.clock.Now()
	}
	r.snap = s
}
