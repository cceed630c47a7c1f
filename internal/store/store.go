package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
)

// Persister loads and saves the whole key → snapshots mapping.
type Persister interface {
	Load(ctx context.Context) (map[ir.Key][]ir.Snapshot, error)
	Save(ctx context.Context, entries map[ir.Key][]ir.Snapshot) error
}

// Store is the identity-keyed rule store.
type Store struct {
	entries   map[ir.Key][]ir.Snapshot
	rows      []*binding.Row
	persister Persister
	onRestore []func(*binding.Row)
}

// New creates an empty store. p may be nil for a store that never touches
// disk.
func New(p Persister) *Store {
	return &Store{
		entries:   make(map[ir.Key][]ir.Snapshot),
		persister: p,
	}
}

// Load replaces the contents with what the persister holds. Any failure
// leaves the store empty; the error is logged, not returned.
func (s *Store) Load(ctx context.Context) {
	s.entries = make(map[ir.Key][]ir.Snapshot)
	if s.persister == nil {
		return
	}

	entries, err := s.persister.Load(ctx)
	if err != nil {
		slog.Warn("rule store load failed, starting empty", "error", err)
		return
	}
	for key, snaps := range entries {
		s.entries[key.Canonical()] = cloneAll(snaps)
	}
	slog.Info("rule store loaded", "keys", len(s.entries))
}

// Save writes the contents through the persister. A failure is logged and
// reported as false; it is never returned as an error.
func (s *Store) Save(ctx context.Context) bool {
	if s.persister == nil {
		return true
	}
	if err := s.persister.Save(ctx, s.Entries()); err != nil {
		slog.Error("rule store save failed", "error", err)
		return false
	}
	slog.Debug("rule store saved", "keys", len(s.entries))
	return true
}

// Lookup returns a copy of the snapshots saved under key.
func (s *Store) Lookup(key ir.Key) ([]ir.Snapshot, bool) {
	snaps, ok := s.entries[key.Canonical()]
	if !ok {
		return nil, false
	}
	return cloneAll(snaps), true
}

// Put overwrites the entry for key. Rows currently bound to key are not
// refreshed; use Bind or a selector change for that.
func (s *Store) Put(key ir.Key, snaps []ir.Snapshot) {
	s.entries[key.Canonical()] = cloneAll(snaps)
}

// Delete removes the entry for key and reports whether there was one.
// A row bound to key keeps its live rules and writes them back on its
// next change.
func (s *Store) Delete(key ir.Key) bool {
	key = key.Canonical()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Keys returns every key in sorted order.
func (s *Store) Keys() []ir.Key {
	keys := make([]ir.Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b ir.Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// Entries returns a deep copy of the whole mapping.
func (s *Store) Entries() map[ir.Key][]ir.Snapshot {
	out := make(map[ir.Key][]ir.Snapshot, len(s.entries))
	for k, v := range s.entries {
		out[k] = cloneAll(v)
	}
	return out
}

// Len returns the number of keys.
func (s *Store) Len() int { return len(s.entries) }

// Bind attaches rows to the store. Each row is first restored from the
// entry of its current key (or defaults), then kept in sync: rule edits
// write the row back, selector edits restore it from the new key.
func (s *Store) Bind(rows ...*binding.Row) {
	for _, row := range rows {
		s.rows = append(s.rows, row)
		s.restore(row)

		row.Listen(binding.FieldAny, func(*binding.Rule, binding.Field) {
			s.SaveRow(row)
		})
		row.Selector.Listen(func(binding.Selector) {
			s.restore(row)
		})
	}
}

// OnRestore registers fn to run after a row was restored because its key
// changed. Listeners on the rules themselves are not notified by a
// restore, so dependants that cache per-rule state hook in here.
func (s *Store) OnRestore(fn func(*binding.Row)) {
	s.onRestore = append(s.onRestore, fn)
}

// SaveRow writes the row's snapshots under its current key. Rows whose
// key is incomplete are not saved.
func (s *Store) SaveRow(row *binding.Row) {
	key, ok := row.Key()
	if !ok {
		return
	}
	s.entries[key] = row.Snapshots()
}

// restore pushes the entry for the row's current key into its rules, or
// the factory defaults when there is none.
func (s *Store) restore(row *binding.Row) {
	var snaps []ir.Snapshot
	if key, ok := row.Key(); ok {
		snaps = s.entries[key]
	}
	if snaps == nil {
		row.Restore(row.Defaults())
	} else {
		row.Restore(cloneAll(snaps))
	}
	for _, fn := range s.onRestore {
		fn(row)
	}
}

// RowFor returns the bound row whose current key is key.
func (s *Store) RowFor(key ir.Key) (*binding.Row, bool) {
	key = key.Canonical()
	for _, row := range s.rows {
		if k, ok := row.Key(); ok && k == key {
			return row, true
		}
	}
	return nil, false
}

// Rows returns the bound rows in bind order.
func (s *Store) Rows() []*binding.Row {
	return slices.Clone(s.rows)
}

// Row returns the bound row with the given name.
func (s *Store) Row(name string) (*binding.Row, bool) {
	for _, row := range s.rows {
		if row.Name == name {
			return row, true
		}
	}
	return nil, false
}

// SetValue writes a new stepped value for the rule at position under key.
//
// When a bound row currently owns key the write goes through the live
// rule, so value listeners fire and the row is saved back. Otherwise the
// stored snapshot is updated in place.
func (s *Store) SetValue(key ir.Key, position, value int) error {
	if row, ok := s.RowFor(key); ok {
		if position < 0 || position >= len(row.Rules) {
			return fmt.Errorf("set value %s[%d]: row %s has %d rules", key, position, row.Name, len(row.Rules))
		}
		row.Rules[position].SetValue(value)
		return nil
	}

	key = key.Canonical()
	snaps, ok := s.entries[key]
	if !ok || position < 0 || position >= len(snaps) {
		return fmt.Errorf("set value %s[%d]: no such rule", key, position)
	}
	snaps[position].Value = value
	return nil
}

func cloneAll(snaps []ir.Snapshot) []ir.Snapshot {
	if snaps == nil {
		return nil
	}
	out := make([]ir.Snapshot, len(snaps))
	for i, s := range snaps {
		out[i] = s.Clone()
	}
	return out
}
