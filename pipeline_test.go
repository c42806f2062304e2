package teletap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teletap/teletap/core"
	"github.com/teletap/teletap/sampling"
	"github.com/teletap/teletap/tagging"
)

// memorySink captures everything recorded through it
type memorySink struct {
	mu      sync.Mutex
	events  []sinkEvent
	samples []sinkSample
}

type sinkEvent struct {
	metric string
	tags   map[string]string
	value  float64
}

type sinkSample struct {
	metric string
	label  string
	value  float64
}

func (s *memorySink) RecordEvent(ctx context.Context, metric string, tags map[string]string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(tags))
	for k, v := range tags {
		copied[k] = v
	}
	s.events = append(s.events, sinkEvent{metric: metric, tags: copied, value: value})
	return nil
}

func (s *memorySink) RecordSample(ctx context.Context, metric string, label string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sinkSample{metric: metric, label: label, value: value})
	return nil
}

func (s *memorySink) eventsFor(metric string) []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sinkEvent
	for _, e := range s.events {
		if e.metric == metric {
			out = append(out, e)
		}
	}
	return out
}

func (s *memorySink) sampleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func newTestPipeline(t *testing.T, sink core.Sink, opts ...PipelineOption) *Pipeline {
	t.Helper()
	cfg, err := core.NewConfig(
		core.WithServiceName("test"),
		core.WithSubstitution("mailboxes", "mboxes"),
		core.WithIgnoreRoutes("internal"),
		core.WithoutSamplers(),
	)
	require.NoError(t, err)

	opts = append([]PipelineOption{WithSink(sink), WithLogger(&core.NoOpLogger{})}, opts...)
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	return p
}

func completedRequest(status interface{}, method, path string) tagging.Event {
	return tagging.Event{Request: &tagging.RequestInfo{Status: status, Method: method, Path: path}}
}

func TestHandleEventRecordsOnce(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(t, sink)

	p.HandleEvent(context.Background(), completedRequest(200, "GET", "/mailboxes/123"), 12.5)

	events := sink.eventsFor(MetricRequestDuration)
	require.Len(t, events, 1)
	assert.Equal(t, 12.5, events[0].value)
	assert.Equal(t, map[string]string{
		"status": "200",
		"method": "GET",
		"path":   "mboxes/123",
	}, events[0].tags)

	// A well-formed event never reaches the invalid-request group
	assert.Empty(t, sink.eventsFor(MetricInvalidRequests))
}

func TestHandleEventMalformed(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(t, sink)

	// No request payload: only the invalid-request counter fires, with
	// the fixed tag set
	p.HandleEvent(context.Background(), tagging.Event{}, 1)

	assert.Empty(t, sink.eventsFor(MetricRequestDuration))
	invalid := sink.eventsFor(MetricInvalidRequests)
	require.Len(t, invalid, 1)
	assert.Equal(t, tagging.InvalidRequestTags(), tagging.TagSet(invalid[0].tags))
}

func TestHandleEventIgnoredRoute(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(t, sink)

	p.HandleEvent(context.Background(), completedRequest(200, "GET", "/internal/jobs/retry"), 1)

	assert.Empty(t, sink.eventsFor(MetricRequestDuration))
}

func TestHandleEventAbsentStatusSkipped(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(t, sink)

	// Request-shaped but with no status: extraction yields an empty
	// tag set and the regular group skips the observation
	p.HandleEvent(context.Background(), completedRequest(nil, "GET", "/accounts"), 1)

	assert.Empty(t, sink.eventsFor(MetricRequestDuration))
}

func TestHandleEventPanickingPredicate(t *testing.T) {
	sink := &memorySink{}
	filter := tagging.NewRequestFilter(tagging.WithAllow(func(evt tagging.Event) bool {
		panic("bad predicate")
	}))
	p := newTestPipeline(t, sink, WithMetricGroup("custom.metric", filter, false))

	// Must not propagate; the single event is lost, nothing else
	p.HandleEvent(context.Background(), completedRequest(200, "GET", "/accounts"), 1)

	assert.Empty(t, sink.eventsFor("custom.metric"))

	// The pipeline still works for the next event
	p.HandleEvent(context.Background(), completedRequest(200, "GET", "/accounts"), 1)
}

func TestCustomMetricGroupsReplaceDefaults(t *testing.T) {
	sink := &memorySink{}
	p := newTestPipeline(t, sink, WithMetricGroup("custom.metric", tagging.NewRequestFilter(), false))

	p.HandleEvent(context.Background(), completedRequest(200, "GET", "/accounts"), 1)

	assert.Len(t, sink.eventsFor("custom.metric"), 1)
	assert.Empty(t, sink.eventsFor(MetricRequestDuration))
}

func TestPipelineSamplers(t *testing.T) {
	sink := &memorySink{}
	cfg, err := core.NewConfig(
		core.WithServiceName("test"),
		core.WithoutSamplers(),
		core.WithSampler("reductions", "proc.reductions", 10*time.Millisecond, true),
	)
	require.NoError(t, err)

	source := sampling.ProcessSourceFunc(func(ctx context.Context, kind sampling.CounterKind) ([]sampling.ProcessStat, error) {
		return []sampling.ProcessStat{{Name: "pool.worker-1", Value: 42}}, nil
	})

	p, err := New(cfg,
		WithSink(sink),
		WithLogger(&core.NoOpLogger{}),
		WithProcessSource(source),
	)
	require.NoError(t, err)

	require.NoError(t, p.Start())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sink.sampleCount() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Greater(t, sink.sampleCount(), 0, "sampler never emitted")

	sink.mu.Lock()
	first := sink.samples[0]
	sink.mu.Unlock()
	assert.Equal(t, "proc.reductions", first.metric)
	assert.Equal(t, "worker-1:42", first.label)
	assert.Equal(t, float64(42), first.value)
}

func TestPipelineStartTwice(t *testing.T) {
	p := newTestPipeline(t, &memorySink{})

	require.NoError(t, p.Start())
	defer p.Stop()

	assert.ErrorIs(t, p.Start(), core.ErrAlreadyStarted)
}

func TestPipelineNotRestartable(t *testing.T) {
	p := newTestPipeline(t, &memorySink{})

	require.NoError(t, p.Start())
	p.Stop()

	assert.ErrorIs(t, p.Start(), core.ErrAlreadyStopped)

	// Stop stays idempotent after the refused restart
	p.Stop()
}

func TestNewPipelineNilConfig(t *testing.T) {
	p, err := New(nil, WithLogger(&core.NoOpLogger{}))
	require.NoError(t, err)
	require.NotNil(t, p)
}
