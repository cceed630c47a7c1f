package config

import (
	"strconv"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/engine"
)

// Events returns the engine events that bring a freshly started engine in
// line with c. The config must have passed Validate.
func (c *Config) Events() []engine.Event {
	return Diff(nil, c)
}

// Diff returns the engine events that turn the state configured by old
// into the state configured by next. old may be nil.
//
// Order matters: switches first, then selectors (a selector change
// restores the row from the store), then rule edits, then the port.
// Within a rule the value is set last, once the rest of the rule is in
// place to send it.
//
// Database, decay and domains cannot change on a running engine; Restart
// reports whether they differ.
func Diff(old, next *Config) []engine.Event {
	initial := old == nil
	if initial {
		old = &Config{}
	}
	var events []engine.Event

	for _, name := range engine.SwitchNames {
		on, _ := next.Switches.Get(name)
		was, _ := old.Switches.Get(name)
		if initial || on != was {
			events = append(events, engine.Event{
				Type:   engine.EventTypeSwitch,
				Switch: &engine.SwitchChange{Name: name, On: on},
			})
		}
	}

	// A row whose key changed holds the new key's saved rules, so every
	// configured field is applied again.
	rekeyed := make(map[string]bool)
	for _, row := range []string{binding.RowTablet, binding.RowMouse} {
		sel := selectorEvents(row, factoryRows()[row].fields, old.selectorFor(row), next.selectorFor(row))
		rekeyed[row] = len(sel) > 0
		events = append(events, sel...)
	}

	for _, row := range []string{binding.RowTablet, binding.RowMouse, binding.RowWheel} {
		layout := factoryRows()[row]
		var before map[int]map[string]string
		if !rekeyed[row] {
			before = ruleFields(layout, old.Rows[row])
		}
		for _, rc := range next.Rows[row] {
			pos := layout.position(rc.Axis)
			if pos < 0 {
				continue
			}
			prev := before[pos]
			for _, f := range rc.fields() {
				if prev[f.name] == f.text {
					continue
				}
				events = append(events, engine.Event{
					Type: engine.EventTypeEdit,
					Edit: &engine.Edit{Row: row, Position: pos, Field: f.name, Value: f.text},
				})
			}
		}
	}

	if next.Port != "" && next.Port != old.Port {
		events = append(events, engine.Event{Type: engine.EventTypeOpenPort, Port: next.Port})
	}
	return events
}

// Restart reports whether next changes settings that only take effect on
// a fresh start.
func Restart(old, next *Config) bool {
	return old.Database != next.Database ||
		old.Decay != next.Decay ||
		!domainsEqual(old.Domains, next.Domains)
}

func domainsEqual(a, b engine.Domains) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func selectorEvents(row string, fields []string, old, next map[string]string) []engine.Event {
	var events []engine.Event
	for _, f := range fields {
		v, ok := next[f]
		if !ok || v == old[f] {
			continue
		}
		events = append(events, engine.Event{
			Type:   engine.EventTypeSelect,
			Select: &engine.Selection{Row: row, Field: f, Value: v},
		})
	}
	return events
}

// ruleFields indexes the textual fields of rules by row position.
func ruleFields(l rowLayout, rules []RuleConfig) map[int]map[string]string {
	out := make(map[int]map[string]string)
	for _, rc := range rules {
		pos := l.position(rc.Axis)
		if pos < 0 {
			continue
		}
		m := make(map[string]string)
		for _, f := range rc.fields() {
			m[f.name] = f.text
		}
		out[pos] = m
	}
	return out
}

type fieldText struct {
	name string
	text string
}

// fields renders the set fields of rc as edits, in application order.
func (rc RuleConfig) fields() []fieldText {
	var out []fieldText
	add := func(f binding.Field, text string) {
		out = append(out, fieldText{name: f.String(), text: text})
	}

	if rc.Enabled != nil {
		add(binding.FieldEnabled, strconv.FormatBool(*rc.Enabled))
	}
	if rc.Channel != nil {
		add(binding.FieldChannel, strconv.Itoa(*rc.Channel))
	}
	if rc.MessageType != nil {
		add(binding.FieldMessageType, *rc.MessageType)
	}
	if rc.ControlType != nil {
		add(binding.FieldControlType, *rc.ControlType)
	}
	if rc.RangeFrom != nil {
		add(binding.FieldRangeFrom, strconv.Itoa(*rc.RangeFrom))
	}
	if rc.RangeTo != nil {
		add(binding.FieldRangeTo, strconv.Itoa(*rc.RangeTo))
	}
	if rc.Threshold != nil {
		add(binding.FieldThreshold, strconv.FormatFloat(*rc.Threshold, 'g', -1, 64))
	}
	if rc.Step != nil {
		add(binding.FieldStep, strconv.Itoa(*rc.Step))
	}
	if rc.PullBack != nil {
		add(binding.FieldPullBack, strconv.FormatBool(*rc.PullBack))
	}
	if rc.Value != nil {
		add(binding.FieldValue, strconv.Itoa(*rc.Value))
	}
	return out
}
