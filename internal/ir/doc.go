// Package ir provides the value types shared by every touchy package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Snapshots are values, never live objects. A Snapshot is what the rule
//     store persists and what the resolver reads.
//   - Fields that a user can leave blank or mistype are pointers; nil means
//     "absent or unparseable" and makes the snapshot invalid.
//   - Identity keys are NFC normalised at construction so two spellings of
//     the same device name select the same rule set.
//   - All JSON tags use snake_case
package ir
