// Package otelsink adapts the pipeline's observation sink contract to
// the OpenTelemetry metric API. Event measurements become histogram
// records with the extracted tags as attributes; sampler observations
// become gauge records, matching their last-value semantics.
//
// The sink never formats exposition text; exporting is whatever the
// installed MeterProvider does.
package otelsink

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// labelProcess is the attribute key sampler labels are recorded under
const labelProcess = "process"

// Sink records observations through cached OpenTelemetry instruments.
// Instruments are created lazily on first use and reused afterwards,
// so recording stays cheap on the request-completion path.
type Sink struct {
	meter      metric.Meter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
	mu         sync.RWMutex
}

// New creates a sink backed by the globally installed MeterProvider
func New(meterName string) *Sink {
	return NewWithProvider(otel.GetMeterProvider(), meterName)
}

// NewWithProvider creates a sink backed by an explicit MeterProvider.
// Useful in tests with a manual reader.
func NewWithProvider(provider metric.MeterProvider, meterName string) *Sink {
	return &Sink{
		meter:      provider.Meter(meterName),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// RecordEvent records one request-completion measurement. An empty tag
// set marks a malformed event; by convention it is skipped, not
// recorded with partial dimensions.
func (s *Sink) RecordEvent(ctx context.Context, metricName string, tags map[string]string, value float64) error {
	if len(tags) == 0 {
		return nil
	}

	hist, err := s.histogram(metricName)
	if err != nil {
		return err
	}

	attrs := make([]attribute.KeyValue, 0, len(tags))
	for key, val := range tags {
		attrs = append(attrs, attribute.String(key, val))
	}

	hist.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

// RecordSample records a sampler observation. Gauges carry last-value
// semantics: this value supersedes the previous tick's.
func (s *Sink) RecordSample(ctx context.Context, metricName string, label string, value float64) error {
	gauge, err := s.gauge(metricName)
	if err != nil {
		return err
	}

	gauge.Record(ctx, value, metric.WithAttributes(attribute.String(labelProcess, label)))
	return nil
}

func (s *Sink) histogram(name string) (metric.Float64Histogram, error) {
	s.mu.RLock()
	hist, exists := s.histograms[name]
	s.mu.RUnlock()
	if exists {
		return hist, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring write lock
	if hist, exists = s.histograms[name]; exists {
		return hist, nil
	}

	hist, err := s.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	s.histograms[name] = hist
	return hist, nil
}

func (s *Sink) gauge(name string) (metric.Float64Gauge, error) {
	s.mu.RLock()
	gauge, exists := s.gauges[name]
	s.mu.RUnlock()
	if exists {
		return gauge, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gauge, exists = s.gauges[name]; exists {
		return gauge, nil
	}

	gauge, err := s.meter.Float64Gauge(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %s: %w", name, err)
	}
	s.gauges[name] = gauge
	return gauge, nil
}
