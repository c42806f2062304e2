package sampling

import (
	"context"
	"fmt"
	"strings"

	"github.com/teletap/teletap/core"
)

// CounterKind names one sampled resource counter.
type CounterKind string

// The classic worker counters. Reductions approximate recent CPU work
// and only make sense as deltas; heap size and queue length are
// point-in-time gauges sampled raw.
const (
	KindReductions  CounterKind = "reductions"
	KindHeapSize    CounterKind = "heap_size"
	KindQueueLength CounterKind = "queue_length"
)

// ProcessStat is one process's counter reading at a sampling tick.
type ProcessStat struct {
	// Name is the stable process identity, dot-delimited by convention
	// (e.g. "pool.mailer.worker-3")
	Name string

	// Value is the raw counter reading
	Value int64
}

// ProcessSource enumerates the currently live, named worker processes
// and reads the requested counter for each. What counts as a tracked
// process is the caller's capability; this package only consumes the
// snapshot.
type ProcessSource interface {
	Snapshot(ctx context.Context, kind CounterKind) ([]ProcessStat, error)
}

// ProcessSourceFunc adapts a function to the ProcessSource interface
type ProcessSourceFunc func(ctx context.Context, kind CounterKind) ([]ProcessStat, error)

func (f ProcessSourceFunc) Snapshot(ctx context.Context, kind CounterKind) ([]ProcessStat, error) {
	return f(ctx, kind)
}

// Observation is the single emitted result of one sampling tick: the
// most extreme process for the sampled counter. It is last-value data;
// each tick's observation supersedes the previous one.
type Observation struct {
	// ProcessName is the full identity of the selected process
	ProcessName string

	// Value is the computed value the process won on: the delta for
	// delta-sampled kinds, the raw reading otherwise
	Value int64

	// Label combines the shortened process name and the raw reading,
	// e.g. "worker-3:182000"
	Label string
}

// Sampler takes periodic snapshots of one counter kind, tracks deltas
// against the prior tick, and selects the single most extreme process.
//
// A Sampler owns its DeltaStore exclusively; ticks for one kind are
// sequential, so the read-compute-replace sequence never races with
// itself.
type Sampler struct {
	kind   CounterKind
	delta  bool
	source ProcessSource
	store  DeltaStore
	logger core.Logger
}

// NewSampler creates a sampler for one counter kind.
//
// delta selects rate-like sampling: each process's value is its
// current reading minus the prior tick's, with an implicit prior of 0
// for first-seen processes. Use it only for monotonically increasing
// counters. With delta false, raw readings are compared directly.
func NewSampler(kind CounterKind, delta bool, source ProcessSource, store DeltaStore, logger core.Logger) (*Sampler, error) {
	if source == nil {
		return nil, fmt.Errorf("process source is required: %w", core.ErrInvalidConfiguration)
	}
	if store == nil {
		store = NewMemoryDeltaStore()
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Sampler{
		kind:   kind,
		delta:  delta,
		source: source,
		store:  store,
		logger: logger,
	}, nil
}

// Kind returns the sampled counter kind
func (s *Sampler) Kind() CounterKind {
	return s.kind
}

// Sample runs one tick: snapshot, diff, select, rewrite.
//
// The returned error is tick-scoped. An empty process set yields
// core.ErrNoProcesses; the caller logs, skips the tick and keeps the
// timer running. No observation from a failed tick is ever emitted.
func (s *Sampler) Sample(ctx context.Context) (Observation, error) {
	stats, err := s.source.Snapshot(ctx, s.kind)
	if err != nil {
		return Observation{}, &core.PipelineError{
			Op:   "sampler.Sample",
			Kind: "sampling",
			ID:   string(s.kind),
			Err:  err,
		}
	}
	if len(stats) == 0 {
		return Observation{}, fmt.Errorf("sampling %s: %w", s.kind, core.ErrNoProcesses)
	}

	prior := map[string]int64{}
	if s.delta {
		prior, err = s.store.Load(ctx)
		if err != nil {
			return Observation{}, fmt.Errorf("sampling %s: %w", s.kind, err)
		}
	}

	// Select the maximum computed value. Ties break by enumeration
	// order, first wins; the order itself is the source's business and
	// deliberately unspecified.
	var top ProcessStat
	var topValue int64
	for i, stat := range stats {
		value := stat.Value
		if s.delta {
			value -= prior[stat.Name]
		}
		if i == 0 || value > topValue {
			top = stat
			topValue = value
		}
	}

	// Rewrite the store wholesale: a process that disappeared this
	// tick leaves no residue, and its delta restarts from zero if it
	// ever comes back.
	snapshot := make(map[string]int64, len(stats))
	for _, stat := range stats {
		snapshot[stat.Name] = stat.Value
	}
	if err := s.store.Replace(ctx, snapshot); err != nil {
		return Observation{}, fmt.Errorf("sampling %s: %w", s.kind, err)
	}

	return Observation{
		ProcessName: top.Name,
		Value:       topValue,
		Label:       FormatLabel(top.Name, top.Value),
	}, nil
}

// FormatLabel builds the observation label from a process identity and
// its raw counter reading: the last dot-delimited segment of the name,
// a colon, and the value.
func FormatLabel(name string, rawValue int64) string {
	short := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		short = name[i+1:]
	}
	return fmt.Sprintf("%s:%d", short, rawValue)
}
