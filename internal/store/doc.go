// Package store keeps rule values keyed by device identity.
//
// The store maps an identity key (source, cursor, button) to the ordered
// list of rule snapshots of the row that was bound to that key. Values are
// keyed by identity, not by row: when a row's key selector changes, the
// row's live rules are reloaded from whatever was saved under the new key,
// or reset to factory defaults if nothing was.
//
// # Binding rows
//
// Bind registers two listeners per row:
//   - any rule change rewrites the row's entry under its current key
//     (skipped while the key is incomplete)
//   - any selector change restores the row from the entry of the new key
//
// # Persistence
//
// A Persister loads and saves the whole mapping. Load failures of any kind
// leave the store empty and are logged; save failures are logged and never
// returned. SQLite is the shipped persister:
//
//   - one row per (source, cursor, button, position)
//   - snapshot stored as JSON
//   - PRAGMA user_version carries ir.SnapshotVersion; a store written
//     under another version is treated as a schema mismatch
//
// The Store is not safe for concurrent use. The engine owns it and touches
// it from its single writer goroutine only.
package store
