package binding

import (
	"fmt"

	"github.com/roach88/touchy/internal/ir"
)

// Row names.
const (
	RowTablet = "tablet"
	RowMouse  = "mouse"
	RowWheel  = "wheel"
)

// Row is a key selector plus its fixed, ordered rules.
type Row struct {
	Name     string
	Selector Selector
	Rules    []*Rule
}

// Key returns the row's current identity key.
func (r *Row) Key() (ir.Key, bool) {
	return r.Selector.Key()
}

// Snapshots returns the values of every rule, in row order.
func (r *Row) Snapshots() []ir.Snapshot {
	out := make([]ir.Snapshot, len(r.Rules))
	for i, rule := range r.Rules {
		out[i] = rule.Snapshot()
	}
	return out
}

// Defaults returns the factory values of every rule, in row order.
func (r *Row) Defaults() []ir.Snapshot {
	out := make([]ir.Snapshot, len(r.Rules))
	for i, rule := range r.Rules {
		out[i] = rule.Defaults()
	}
	return out
}

// Restore pushes saved snapshots into the live rules. A missing list, or a
// missing position, falls back to that rule's factory defaults.
func (r *Row) Restore(snaps []ir.Snapshot) {
	for i, rule := range r.Rules {
		if i < len(snaps) {
			rule.Restore(snaps[i])
		} else {
			rule.Restore(rule.Defaults())
		}
	}
}

// RuleFor returns the rule bound to axis and its position.
func (r *Row) RuleFor(axis ir.Axis) (*Rule, int, error) {
	for i, rule := range r.Rules {
		if rule.Axis() == axis {
			return rule, i, nil
		}
	}
	return nil, -1, fmt.Errorf("row %s has no rule for axis %q", r.Name, axis)
}

// Listen registers fn on every rule of the row.
func (r *Row) Listen(f Field, fn Listener) {
	for _, rule := range r.Rules {
		rule.Listen(f, fn)
	}
}
