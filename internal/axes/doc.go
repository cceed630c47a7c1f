// Package axes implements the per-rule running state behind threshold gating.
//
// A Tracker records, for every named axis it has seen, the last sample, the
// most recent delta (last - new), the running signed sum of samples and the
// accumulated absolute travel. Two consumers are built on it:
//
//   - Threshold gates a rule on the travel of one designated axis. Until
//     the gating axis has moved at least the threshold, samples are
//     swallowed; the sample that crosses it passes unchanged and clears
//     the gating axis's accumulators (and only those).
//   - Accumulating exposes the running (x, y, z) sums with no gating, for
//     relative-motion consumers.
//
// State is transient: it is never persisted, and the engine drops it when a
// rule's threshold is edited.
package axes
