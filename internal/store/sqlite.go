package store

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/touchy/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// SQLite persists rule sets in a single-table SQLite database.
//
// The database is opened for each Load and Save and closed again, so the
// file is never held open between edits.
type SQLite struct {
	path string
}

// NewSQLite returns a persister for the database at path. Nothing is
// touched until the first Load or Save.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Load reads every saved rule set.
func (s *SQLite) Load(ctx context.Context) (map[ir.Key][]ir.Snapshot, error) {
	db, err := openDB(ctx, s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT source, cursor, button, position, snapshot
		FROM rule_sets
		ORDER BY source, cursor, button, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query rule sets: %w", err)
	}
	defer rows.Close()

	out := make(map[ir.Key][]ir.Snapshot)
	for rows.Next() {
		var (
			source, cursor, button string
			position               int
			raw                    string
		)
		if err := rows.Scan(&source, &cursor, &button, &position, &raw); err != nil {
			return nil, fmt.Errorf("scan rule set: %w", err)
		}

		key := ir.NewKey(source, cursor, button)

		snap, err := unmarshalSnapshot(raw)
		if err != nil {
			return nil, fmt.Errorf("rule set %s[%d]: %w", key, position, err)
		}
		if position != len(out[key]) {
			return nil, fmt.Errorf("rule set %s: position %d out of order", key, position)
		}
		out[key] = append(out[key], snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule sets: %w", err)
	}
	return out, nil
}

// Save replaces the database contents with entries in one transaction.
func (s *SQLite) Save(ctx context.Context, entries map[ir.Key][]ir.Snapshot) error {
	db, err := openDB(ctx, s.path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM rule_sets"); err != nil {
		return fmt.Errorf("clear rule sets: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rule_sets (source, cursor, button, position, snapshot)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, snaps := range entries {
		for pos, snap := range snaps {
			raw, err := json.Marshal(snap)
			if err != nil {
				return fmt.Errorf("marshal %s[%d]: %w", key, pos, err)
			}
			_, err = stmt.ExecContext(ctx, key.Source, key.Cursor, key.Button, pos, string(raw))
			if err != nil {
				return fmt.Errorf("insert %s[%d]: %w", key, pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// unmarshalSnapshot decodes one stored snapshot. Unknown fields are
// rejected so a file written by a different layout is not half-read.
func unmarshalSnapshot(raw string) (ir.Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var snap ir.Snapshot
	if err := dec.Decode(&snap); err != nil {
		return ir.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// openDB opens the database and brings its schema up to date.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the table and stamps the snapshot layout version.
// A database stamped with a newer layout is refused.
func applySchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > ir.SnapshotVersion {
		return fmt.Errorf("database layout %d is newer than supported %d", version, ir.SnapshotVersion)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if version < ir.SnapshotVersion {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", ir.SnapshotVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
