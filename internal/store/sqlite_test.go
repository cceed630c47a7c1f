package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
)

func TestSQLite_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	p := NewSQLite(path)

	entries, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("fresh database has %d entries, want 0", len(entries))
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestSQLite_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewSQLite(filepath.Join(t.TempDir(), "rules.db"))

	tabletKey := ir.NewKey("Wacom Intuos", "Pressure Stylus", "1")
	tablet := []ir.Snapshot{
		binding.TabletDefaults(ir.AxisX),
		binding.TabletDefaults(ir.AxisY),
		binding.TabletDefaults(ir.AxisZ),
	}
	tablet[2].Enabled = true
	tablet[2].Threshold = ir.FloatPtr(2.5)

	wheel := []ir.Snapshot{binding.WheelDefaults(ir.AxisX), binding.WheelDefaults(ir.AxisY)}
	wheel[1].Value = -300
	wheel[1].PullBack = true

	in := map[ir.Key][]ir.Snapshot{tabletKey: tablet, ir.WheelKey: wheel}
	if err := p.Save(ctx, in); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	out, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Load() returned %d keys, want 2", len(out))
	}
	for key, want := range in {
		got := out[key]
		if len(got) != len(want) {
			t.Fatalf("%s: got %d rules, want %d", key, len(got), len(want))
		}
		for i := range want {
			if got[i].Kind() != want[i].Kind() {
				t.Errorf("%s[%d]: kind %v, want %v", key, i, got[i].Kind(), want[i].Kind())
			}
			if got[i].Value != want[i].Value || got[i].Enabled != want[i].Enabled || got[i].PullBack != want[i].PullBack {
				t.Errorf("%s[%d]: got %+v, want %+v", key, i, got[i], want[i])
			}
		}
	}
	if *out[tabletKey][2].Threshold != 2.5 {
		t.Errorf("threshold = %v, want 2.5", *out[tabletKey][2].Threshold)
	}
}

func TestSQLite_SaveReplacesContents(t *testing.T) {
	ctx := context.Background()
	p := NewSQLite(filepath.Join(t.TempDir(), "rules.db"))

	first := map[ir.Key][]ir.Snapshot{
		ir.NewKey("a", "b", "1"): {binding.TabletDefaults(ir.AxisX)},
		ir.NewKey("a", "b", "2"): {binding.TabletDefaults(ir.AxisX)},
	}
	if err := p.Save(ctx, first); err != nil {
		t.Fatalf("first Save() failed: %v", err)
	}
	second := map[ir.Key][]ir.Snapshot{
		ir.NewKey("a", "b", "2"): {binding.TabletDefaults(ir.AxisY)},
	}
	if err := p.Save(ctx, second); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	out, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Load() returned %d keys, want 1", len(out))
	}
	if got := out[ir.NewKey("a", "b", "2")][0].Axis; got != ir.AxisY {
		t.Errorf("axis = %q, want y", got)
	}
}

func TestSQLite_StampsUserVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	if _, err := NewSQLite(path).Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != ir.SnapshotVersion {
		t.Errorf("user_version = %d, want %d", version, ir.SnapshotVersion)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestSQLite_NewerLayoutRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	db.Close()

	if _, err := NewSQLite(path).Load(context.Background()); err == nil {
		t.Error("Load() succeeded on a newer layout, want error")
	}
}

func TestSQLite_CorruptFileLoadsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	if err := os.WriteFile(path, []byte("this is not a database"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(NewSQLite(path))
	s.Put(ir.WheelKey, nil)
	s.Load(context.Background())

	if s.Len() != 0 {
		t.Errorf("store has %d keys after corrupt load, want 0", s.Len())
	}
}

func TestSQLite_BadSnapshotFailsLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.db")
	p := NewSQLite(path)
	if err := p.Save(ctx, nil); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`INSERT INTO rule_sets VALUES ('a', 'b', '1', 0, '{"colour": "red"}')`)
	db.Close()
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := p.Load(ctx); err == nil {
		t.Error("Load() accepted a snapshot with unknown fields")
	}
}
