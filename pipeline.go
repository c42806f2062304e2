package teletap

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/teletap/teletap/core"
	"github.com/teletap/teletap/sampling"
	"github.com/teletap/teletap/tagging"
)

// Default metric identities for the built-in metric groups.
const (
	// MetricRequestDuration receives one measurement per recorded
	// request-completion event, tagged with status/method/path
	MetricRequestDuration = "request.duration_ms"

	// MetricInvalidRequests counts events that never carried a usable
	// request context, under the fixed invalid-request tags
	MetricInvalidRequests = "request.invalid"
)

// MetricGroup binds one sink metric to a filter and a tag flavor.
//
// Regular groups record the extracted tag set; invalid groups record
// the fixed invalid-request tags instead, because their events have
// no usable dimensions of their own.
type MetricGroup struct {
	Metric  string
	Filter  *tagging.Filter
	Invalid bool
}

// Pipeline wires tag extraction, filtering and process sampling to a
// configuration and an observation sink.
//
// HandleEvent computes the tag set and each group's filter decision
// exactly once per event and hands the same immutable values to every
// group emission. There is no ambient per-request state anywhere.
type Pipeline struct {
	id        string
	config    *core.Config
	logger    core.Logger
	sink      core.Sink
	extractor *tagging.Extractor
	groups    []MetricGroup

	source  sampling.ProcessSource
	runners []*sampling.Runner

	mu      sync.Mutex
	started bool
	stopped bool
}

// PipelineOption configures a Pipeline beyond what core.Config carries
type PipelineOption func(*Pipeline)

// WithSink installs the observation sink. Without one, observations
// are discarded.
func WithSink(sink core.Sink) PipelineOption {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithLogger overrides the default pipeline logger
func WithLogger(logger core.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProcessSource supplies the capability that enumerates tracked
// worker processes. Samplers are only built when a source is present.
func WithProcessSource(source sampling.ProcessSource) PipelineOption {
	return func(p *Pipeline) {
		p.source = source
	}
}

// WithMetricGroup appends a metric group, replacing the default set
func WithMetricGroup(metric string, filter *tagging.Filter, invalid bool) PipelineOption {
	return func(p *Pipeline) {
		p.groups = append(p.groups, MetricGroup{Metric: metric, Filter: filter, Invalid: invalid})
	}
}

// New builds a pipeline from configuration.
//
// When no metric groups are configured, the two built-in groups are
// installed: MetricRequestDuration behind the regular request filter
// (with the configured route ignore list) and MetricInvalidRequests
// behind the invalid-request filter.
func New(config *core.Config, opts ...PipelineOption) (*Pipeline, error) {
	if config == nil {
		var err error
		config, err = core.NewConfig()
		if err != nil {
			return nil, err
		}
	} else if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		id:     fmt.Sprintf("%s-%s", config.ServiceName, uuid.New().String()[:8]),
		config: config,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = core.NewPipelineLogger(config.ServiceName)
	}
	if p.sink == nil {
		p.sink = &core.NoOpSink{}
	}

	rules := make([]tagging.Rule, 0, len(config.Tagging.Substitutions))
	for _, sub := range config.Tagging.Substitutions {
		rules = append(rules, tagging.Rule{From: sub.From, To: sub.To})
	}
	normalizer := tagging.NewPathNormalizer(rules,
		tagging.WithSegmentBand(config.Tagging.MinSegment, config.Tagging.MaxSegment))
	p.extractor = tagging.NewExtractor(normalizer, p.logger)

	if len(p.groups) == 0 {
		p.groups = defaultGroups(config)
	}

	if p.source != nil {
		if err := p.buildRunners(); err != nil {
			return nil, err
		}
	}

	p.logger.Info("Pipeline created", map[string]interface{}{
		"pipeline": p.id,
		"groups":   len(p.groups),
		"samplers": len(p.runners),
	})

	return p, nil
}

// defaultGroups builds the built-in metric group pair from config
func defaultGroups(config *core.Config) []MetricGroup {
	shapes := make([]tagging.RouteShape, 0, len(config.Tagging.AllowShapes))
	for _, shape := range config.Tagging.AllowShapes {
		shapes = append(shapes, tagging.RouteShape{First: shape.First, Segments: shape.Segments})
	}
	routes := tagging.NewRouteFilter(config.Tagging.IgnoreRoutes, shapes)

	return []MetricGroup{
		{
			Metric: MetricRequestDuration,
			Filter: tagging.NewRequestFilter(tagging.WithRouteFilter(routes)),
		},
		{
			Metric:  MetricInvalidRequests,
			Filter:  tagging.NewInvalidRequestFilter(),
			Invalid: true,
		},
	}
}

// buildRunners constructs one sampler and runner per configured kind
func (p *Pipeline) buildRunners() error {
	for _, sc := range p.config.Sampling.Samplers {
		store, err := p.buildStore(sc.Kind)
		if err != nil {
			return err
		}

		sampler, err := sampling.NewSampler(sampling.CounterKind(sc.Kind), sc.Delta, p.source, store, p.logger)
		if err != nil {
			return err
		}

		p.runners = append(p.runners, sampling.NewRunner(sampler, sc.Metric, sc.Interval, p.sink, p.logger))
	}
	return nil
}

// buildStore picks the delta store backend for one counter kind
func (p *Pipeline) buildStore(kind string) (sampling.DeltaStore, error) {
	if p.config.RedisURL == "" {
		return sampling.NewMemoryDeltaStore(), nil
	}
	return sampling.NewRedisDeltaStore(sampling.RedisDeltaStoreOptions{
		RedisURL: p.config.RedisURL,
		Kind:     kind,
		Logger:   p.logger,
	})
}

// HandleEvent processes one request-completion event synchronously.
//
// value is the event's measurement, typically its duration in
// milliseconds. The tag set is extracted once; every group that does
// not drop the event records against the same immutable set. A
// misbehaving caller predicate is confined to this single event.
func (p *Pipeline) HandleEvent(ctx context.Context, evt tagging.Event, value float64) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("Event handling panicked", map[string]interface{}{
				"pipeline": p.id,
				"panic":    rec,
			})
		}
	}()

	tags := p.extractor.Extract(evt)

	for _, group := range p.groups {
		if group.Filter != nil && group.Filter.ShouldDrop(evt) {
			continue
		}

		recorded := tags
		if group.Invalid {
			recorded = tagging.InvalidRequestTags()
		} else if len(recorded) == 0 {
			// Malformed event: already logged by the extractor,
			// nothing usable to record
			continue
		}

		if err := p.sink.RecordEvent(ctx, group.Metric, recorded, value); err != nil {
			p.logger.Error("Failed to record event", map[string]interface{}{
				"pipeline": p.id,
				"metric":   group.Metric,
				"error":    err,
			})
		}
	}
}

// Start launches all sampler runners. Safe to call without a process
// source; there is simply nothing to start.
//
// A pipeline runs at most once: each runner's goroutine exits for good
// on Stop, so Start after Stop returns ErrAlreadyStopped instead of
// pretending to restart.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return core.ErrAlreadyStopped
	}
	if p.started {
		return core.ErrAlreadyStarted
	}
	p.started = true

	for _, runner := range p.runners {
		runner.Start()
	}
	return nil
}

// Stop terminates all sampler runners and waits for in-flight ticks
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return
	}
	p.stopped = true

	for _, runner := range p.runners {
		runner.Stop()
	}

	p.logger.Info("Pipeline stopped", map[string]interface{}{
		"pipeline": p.id,
	})
}
