package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/muhammadmuzzammil1998/jsonc"

	"github.com/roach88/touchy/internal/ir"
)

// Preset is the portable export format of a rule store. Files may carry
// comments and trailing commas (JSONC); they are stripped on read.
type Preset struct {
	Version  int       `json:"version"`
	RuleSets []RuleSet `json:"rule_sets"`
}

// RuleSet is the saved rules of one key.
type RuleSet struct {
	Key   ir.Key        `json:"key"`
	Rules []ir.Snapshot `json:"rules"`
}

// Export renders every entry of s as a preset, keys in sorted order.
func Export(s *Store) Preset {
	p := Preset{Version: ir.SnapshotVersion}
	for _, key := range s.Keys() {
		snaps, _ := s.Lookup(key)
		p.RuleSets = append(p.RuleSets, RuleSet{Key: key, Rules: snaps})
	}
	return p
}

// Import merges the preset into s. Keys present in the preset replace the
// stored entry; other keys are left alone. Every rule is validated before
// anything is written.
func Import(s *Store, p Preset) (int, error) {
	if p.Version != ir.SnapshotVersion {
		return 0, fmt.Errorf("preset version %d, want %d", p.Version, ir.SnapshotVersion)
	}
	for _, rs := range p.RuleSets {
		for i, snap := range rs.Rules {
			if err := snap.Validate(); err != nil {
				return 0, fmt.Errorf("preset %s[%d]: %w", rs.Key, i, err)
			}
		}
	}
	for _, rs := range p.RuleSets {
		s.Put(rs.Key, rs.Rules)
	}
	return len(p.RuleSets), nil
}

// ReadPreset decodes a JSONC preset.
func ReadPreset(r io.Reader) (Preset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(raw)))
	dec.DisallowUnknownFields()

	var p Preset
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("parse preset: %w", err)
	}
	return p, nil
}

// WritePreset encodes p as indented JSON.
func WritePreset(w io.Writer, p Preset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}
