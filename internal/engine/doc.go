// Package engine turns pointer input into MIDI output.
//
// The engine owns the bound rule rows, the resolver that maps samples to
// messages, the pull-back scheduler for stepped values, the global
// switches and the output port.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every mutation happens on one goroutine, the Run loop. Pointer readers,
// the tick source, the config watcher and the CLI only enqueue events.
// This ensures:
//   - A decay step never races a manual edit of the same value
//   - Rule edits take effect between two samples, never during one
//   - The output log is in the order messages were sent
//
// Event Processing Flow:
//  1. Events are enqueued to an unbounded FIFO queue
//  2. Engine.Run() dequeues them one at a time
//  3. Process() routes each to its handler
//  4. Input events update the threshold gates and run one Resolve pass
//  5. Stepped writes and decay steps notify the rule's value listener,
//     which sends the rule's message
//
// Resolution:
// A sample is keyed by (source, cursor, button). The resolver looks up the
// rules saved under that key, drops disabled and invalid ones, and groups
// the rest by channel. Within a channel a note rule and a velocity rule
// pair into one note_on; every other rule sends on its own. Values that
// clamp to zero are not sent.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every processed event is stamped with a monotonic seq from Sequence.Next().
// Wall time is only used for the pull-back idle window.
//
// Deterministic Scheduling:
// Rules resolve in channel order, then row order. Pull-back tasks step in
// RuleID order. Nothing depends on map iteration order.
package engine
