package core

import "context"

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Sink receives finished observations. Implementations hand them to an
// external metrics registry; this package never formats exposition text.
type Sink interface {
	// RecordEvent records one request-completion measurement with its tag set.
	// An empty tag set means the event was malformed; sinks should skip it.
	RecordEvent(ctx context.Context, metric string, tags map[string]string, value float64) error

	// RecordSample records a sampler observation. The value replaces any
	// previous value recorded for the same metric and label (last-value).
	RecordSample(ctx context.Context, metric string, label string, value float64) error
}

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// NoOpSink discards all observations. Useful for tests and for running
// the pipeline before a real registry is wired in.
type NoOpSink struct{}

func (n *NoOpSink) RecordEvent(ctx context.Context, metric string, tags map[string]string, value float64) error {
	return nil
}

func (n *NoOpSink) RecordSample(ctx context.Context, metric string, label string, value float64) error {
	return nil
}
