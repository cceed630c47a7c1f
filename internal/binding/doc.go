// Package binding holds the live, user-editable rule objects.
//
// A Rule is the mutable counterpart of an ir.Snapshot. Every change goes
// through an explicit mutator which synchronously invokes the listeners
// registered for that field, in registration order, followed by the
// listeners registered for every field. The rule store, the resolver's
// caches and the decay scheduler all hang off these listeners.
//
// A Row groups a key Selector with a fixed, ordered list of rules. The
// selector decides which identity key the row's values are saved under;
// changing the selector swaps the row's values for the ones saved under
// the new key.
//
// Rules carry a stable RuleID assigned at construction. Timers and caches
// key on the ID, never on the pointer.
package binding
