package config

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
)

// Validation error codes (C100-C199)
const (
	ErrUnknownRow         = "C101" // rows.<name> is not a factory row
	ErrUnknownAxis        = "C102" // the row has no rule for the axis
	ErrDuplicateAxis      = "C103" // two entries for one axis
	ErrUnknownMessageType = "C104" // message_type not in the message table
	ErrUnknownControl     = "C105" // control_type not in the controller table
	ErrDuplicateNote      = "C106" // two enabled note (or velocity) rules on one channel
	ErrWrongKind          = "C107" // threshold on a stepped rule, step/value/pull_back on a continuous one
	ErrZeroSpan           = "C108" // range_from == range_to, or a zero-span domain
	ErrUnknownSelector    = "C109" // selector field the row does not have
	ErrMissingSelector    = "C110" // rules configured for a row with no complete key
)

// ValidationError represents one problem with a config.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// rowLayout describes one factory row: its rules' axes in order, their
// kind and their defaults.
type rowLayout struct {
	axes     []ir.Axis
	kind     ir.Kind
	defaults []ir.Snapshot
	fields   []string
}

var factoryRows = sync.OnceValue(func() map[string]rowLayout {
	out := make(map[string]rowLayout)
	for _, row := range binding.DefaultRows(binding.SystemClock{}) {
		l := rowLayout{defaults: row.Defaults(), fields: row.Selector.Fields()}
		for _, r := range row.Rules {
			l.axes = append(l.axes, r.Axis())
			l.kind = r.Kind()
		}
		out[row.Name] = l
	}
	return out
})

// position returns where axis sits in the row, or -1.
func (l rowLayout) position(axis ir.Axis) int {
	return slices.Index(l.axes, axis)
}

// Validate checks the cross-field rules the schema cannot express.
// Returns all errors found (does not fail-fast).
func Validate(c *Config) []ValidationError {
	var errs []ValidationError
	rows := factoryRows()

	errs = append(errs, validateSelector("selectors.tablet", rows[binding.RowTablet], c.Selectors.Tablet)...)
	errs = append(errs, validateSelector("selectors.mouse", rows[binding.RowMouse], c.Selectors.Mouse)...)

	for _, axis := range sortedAxes(c) {
		d := c.Domains[axis]
		if d[0] == d[1] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("domains.%s", axis),
				Message: fmt.Sprintf("domain (%g, %g) has zero span", d[0], d[1]),
				Code:    ErrZeroSpan,
			})
		}
	}

	names := make([]string, 0, len(c.Rows))
	for name := range c.Rows {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		layout, ok := rows[name]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "rows." + name,
				Message: fmt.Sprintf("unknown row (want one of %s, %s, %s)", binding.RowTablet, binding.RowMouse, binding.RowWheel),
				Code:    ErrUnknownRow,
			})
			continue
		}
		if !selectorComplete(layout, c.selectorFor(name)) {
			errs = append(errs, ValidationError{
				Field:   "rows." + name,
				Message: fmt.Sprintf("selectors.%s must set %v", name, layout.fields),
				Code:    ErrMissingSelector,
			})
		}
		errs = append(errs, validateRow(name, layout, c.Rows[name])...)
	}
	return errs
}

func (c *Config) selectorFor(row string) map[string]string {
	switch row {
	case binding.RowTablet:
		return c.Selectors.Tablet
	case binding.RowMouse:
		return c.Selectors.Mouse
	default:
		return nil
	}
}

func selectorComplete(l rowLayout, values map[string]string) bool {
	for _, f := range l.fields {
		if values[f] == "" {
			return false
		}
	}
	return true
}

func validateSelector(field string, l rowLayout, values map[string]string) []ValidationError {
	var errs []ValidationError
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !slices.Contains(l.fields, k) {
			errs = append(errs, ValidationError{
				Field:   field + "." + k,
				Message: fmt.Sprintf("unknown selector field (want one of %v)", l.fields),
				Code:    ErrUnknownSelector,
			})
		}
	}
	return errs
}

func validateRow(name string, l rowLayout, rules []RuleConfig) []ValidationError {
	var errs []ValidationError
	seen := make(map[ir.Axis]bool)

	// effective channel → positions of enabled note / velocity rules
	notes := make(map[int][]int)
	velocities := make(map[int][]int)

	for i, rc := range rules {
		field := fmt.Sprintf("rows.%s[%d]", name, i)

		pos := l.position(rc.Axis)
		if pos < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".axis",
				Message: fmt.Sprintf("row %s has no rule for axis %q (has %v)", name, rc.Axis, l.axes),
				Code:    ErrUnknownAxis,
			})
			continue
		}
		if seen[rc.Axis] {
			errs = append(errs, ValidationError{
				Field:   field + ".axis",
				Message: fmt.Sprintf("axis %s configured twice", rc.Axis),
				Code:    ErrDuplicateAxis,
			})
			continue
		}
		seen[rc.Axis] = true

		errs = append(errs, validateRule(field, l.kind, rc)...)

		snap := rc.apply(l.defaults[pos])
		if !snap.Enabled || snap.Channel == nil {
			continue
		}
		switch snap.MessageType {
		case ir.MessageNote:
			notes[*snap.Channel] = append(notes[*snap.Channel], i)
		case ir.MessageVelocity:
			velocities[*snap.Channel] = append(velocities[*snap.Channel], i)
		}
	}

	errs = append(errs, duplicates(name, ir.MessageNote, notes)...)
	errs = append(errs, duplicates(name, ir.MessageVelocity, velocities)...)
	return errs
}

func validateRule(field string, kind ir.Kind, rc RuleConfig) []ValidationError {
	var errs []ValidationError

	if rc.MessageType != nil {
		if _, ok := ir.ParseMessageType(*rc.MessageType); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".message_type",
				Message: fmt.Sprintf("unknown message type %q", *rc.MessageType),
				Code:    ErrUnknownMessageType,
			})
		}
	}
	if rc.ControlType != nil {
		if _, ok := ir.LookupControl(*rc.ControlType); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".control_type",
				Message: fmt.Sprintf("unknown controller %q", *rc.ControlType),
				Code:    ErrUnknownControl,
			})
		}
	}
	if rc.RangeFrom != nil && rc.RangeTo != nil && *rc.RangeFrom == *rc.RangeTo {
		errs = append(errs, ValidationError{
			Field:   field + ".range_to",
			Message: fmt.Sprintf("range (%d, %d) has zero span", *rc.RangeFrom, *rc.RangeTo),
			Code:    ErrZeroSpan,
		})
	}

	switch kind {
	case ir.KindStepped:
		if rc.Threshold != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".threshold",
				Message: "stepped rules have no threshold",
				Code:    ErrWrongKind,
			})
		}
	case ir.KindContinuous:
		stepped := []struct {
			name string
			set  bool
		}{
			{"step", rc.Step != nil},
			{"value", rc.Value != nil},
			{"pull_back", rc.PullBack != nil},
		}
		for _, f := range stepped {
			if f.set {
				errs = append(errs, ValidationError{
					Field:   field + "." + f.name,
					Message: "continuous rules have no " + f.name,
					Code:    ErrWrongKind,
				})
			}
		}
	}
	return errs
}

func duplicates(row string, mt ir.MessageType, byChannel map[int][]int) []ValidationError {
	channels := make([]int, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	var errs []ValidationError
	for _, ch := range channels {
		idx := byChannel[ch]
		if len(idx) < 2 {
			continue
		}
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("rows.%s[%d]", row, idx[len(idx)-1]),
			Message: fmt.Sprintf("channel %d already has an enabled %s rule at rows.%s[%d]", ch, mt, row, idx[0]),
			Code:    ErrDuplicateNote,
		})
	}
	return errs
}

// apply overlays the configured fields on base.
func (rc RuleConfig) apply(base ir.Snapshot) ir.Snapshot {
	s := base.Clone()
	if rc.Enabled != nil {
		s.Enabled = *rc.Enabled
	}
	if rc.Channel != nil {
		s.Channel = ir.IntPtr(*rc.Channel)
	}
	if rc.MessageType != nil {
		if mt, ok := ir.ParseMessageType(*rc.MessageType); ok {
			s.MessageType = mt
		}
	}
	if rc.ControlType != nil {
		s.ControlType = *rc.ControlType
	}
	if rc.RangeFrom != nil {
		s.RangeFrom = ir.IntPtr(*rc.RangeFrom)
	}
	if rc.RangeTo != nil {
		s.RangeTo = ir.IntPtr(*rc.RangeTo)
	}
	if rc.Threshold != nil && s.Kind() == ir.KindContinuous {
		s.Threshold = ir.FloatPtr(*rc.Threshold)
	}
	if s.Kind() == ir.KindStepped {
		if rc.Step != nil {
			s.Step = ir.IntPtr(*rc.Step)
		}
		if rc.Value != nil {
			s.Value = *rc.Value
		}
		if rc.PullBack != nil {
			s.PullBack = *rc.PullBack
		}
	}
	return s
}

func sortedAxes(c *Config) []ir.Axis {
	axes := make([]ir.Axis, 0, len(c.Domains))
	for a := range c.Domains {
		axes = append(axes, a)
	}
	slices.Sort(axes)
	return axes
}
