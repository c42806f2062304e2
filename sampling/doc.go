// Package sampling periodically snapshots a dynamic set of named
// worker processes, diffs monotonic counters against the prior tick,
// and emits the single most extreme process per tick as a last-value
// observation.
//
// Each counter kind runs on its own timer against its own DeltaStore;
// the stores are never shared between kinds. Ticks are lossy by
// design: a tick that errors is logged and skipped and the timer
// keeps going.
package sampling
