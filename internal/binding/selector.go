package binding

import (
	"fmt"
	"slices"

	"github.com/roach88/touchy/internal/ir"
)

// Selector decides which identity key a row's values belong to.
type Selector interface {
	// Key returns the current key; false while any selector field is unset.
	Key() (ir.Key, bool)

	// Fields lists the editable selector fields. Static selectors have none.
	Fields() []string

	// Get returns a field's value; false when unset.
	Get(field string) (string, bool)

	// Set changes a field. An empty value unsets it. Listeners fire after
	// every successful Set.
	Set(field, value string) error

	// Listen registers fn for selector changes.
	Listen(fn func(Selector))
}

// StaticSelector always yields the same key.
type StaticSelector struct {
	key ir.Key
}

// NewStaticSelector returns a selector fixed to key.
func NewStaticSelector(key ir.Key) *StaticSelector {
	return &StaticSelector{key: key.Canonical()}
}

func (s *StaticSelector) Key() (ir.Key, bool)       { return s.key, true }
func (s *StaticSelector) Fields() []string          { return nil }
func (s *StaticSelector) Get(string) (string, bool) { return "", false }
func (s *StaticSelector) Listen(func(Selector))     {}

func (s *StaticSelector) Set(field, _ string) error {
	return fmt.Errorf("selector field %q: static key cannot change", field)
}

// FieldSelector derives its key from a set of named fields.
type FieldSelector struct {
	fields    []string
	values    map[string]string
	build     func(values map[string]string) ir.Key
	listeners []func(Selector)
}

func newFieldSelector(fields []string, build func(map[string]string) ir.Key) *FieldSelector {
	return &FieldSelector{
		fields: fields,
		values: make(map[string]string),
		build:  build,
	}
}

// Selector field names.
const (
	SelectTablet = "tablet"
	SelectCursor = "cursor"
	SelectButton = "button"
)

// NewTabletSelector keys on (tablet, cursor, button).
func NewTabletSelector() *FieldSelector {
	return newFieldSelector([]string{SelectTablet, SelectCursor, SelectButton}, func(v map[string]string) ir.Key {
		return ir.NewKey(v[SelectTablet], v[SelectCursor], v[SelectButton])
	})
}

// NewMouseSelector keys on the mouse button: ("mouse", "cursor", button).
func NewMouseSelector() *FieldSelector {
	return newFieldSelector([]string{SelectButton}, func(v map[string]string) ir.Key {
		return ir.NewKey(ir.MouseSource, ir.MouseCursor, v[SelectButton])
	})
}

func (s *FieldSelector) Key() (ir.Key, bool) {
	for _, f := range s.fields {
		if _, ok := s.values[f]; !ok {
			return ir.Key{}, false
		}
	}
	return s.build(s.values), true
}

func (s *FieldSelector) Fields() []string { return slices.Clone(s.fields) }

func (s *FieldSelector) Get(field string) (string, bool) {
	v, ok := s.values[field]
	return v, ok
}

func (s *FieldSelector) Set(field, value string) error {
	if !slices.Contains(s.fields, field) {
		return fmt.Errorf("selector field %q: want one of %v", field, s.fields)
	}
	if value == "" {
		delete(s.values, field)
	} else {
		s.values[field] = value
	}
	for _, fn := range s.listeners {
		fn(s)
	}
	return nil
}

func (s *FieldSelector) Listen(fn func(Selector)) {
	s.listeners = append(s.listeners, fn)
}
