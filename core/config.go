package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the telemetry pipeline.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// The configuration is immutable once a pipeline has been constructed
// from it; rebuilding the pipeline is the only way to change behavior.
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithServiceName("chat-backend"),
//	    core.WithSubstitution("mailboxes", "mboxes"),
//	    core.WithSampler("reductions", "proc.reductions", 10*time.Second, true),
//	)
type Config struct {
	// ServiceName identifies this pipeline instance in logs and metrics
	ServiceName string `yaml:"service_name"`

	// RedisURL enables the Redis-backed delta store when set.
	// When empty, samplers use in-memory stores.
	RedisURL string `yaml:"redis_url"`

	// Tagging configuration for the request-event path
	Tagging TaggingConfig `yaml:"tagging"`

	// Sampling configuration for the periodic process samplers
	Sampling SamplingConfig `yaml:"sampling"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// TaggingConfig controls tag extraction and event filtering.
type TaggingConfig struct {
	// Substitutions are applied to the raw path, in order, before
	// segment filtering. Each is a literal substring replacement.
	Substitutions []Substitution `yaml:"substitutions"`

	// IgnoreRoutes lists first path segments whose events are dropped
	// unless carved out by AllowShapes.
	IgnoreRoutes []string `yaml:"ignore_routes"`

	// AllowShapes carves known-good (first segment, segment count)
	// shapes out of IgnoreRoutes.
	AllowShapes []ShapeConfig `yaml:"allow_shapes"`

	// MinSegment and MaxSegment bound the path-segment length band:
	// only segments with MinSegment < len < MaxSegment survive
	// normalization. Zero values select the defaults (2 and 15).
	MinSegment int `yaml:"min_segment"`
	MaxSegment int `yaml:"max_segment"`
}

// Substitution is one literal substring replacement rule.
type Substitution struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ShapeConfig names a route shape: the first path segment and the
// total number of segments in the path.
type ShapeConfig struct {
	First    string `yaml:"first"`
	Segments int    `yaml:"segments"`
}

// SamplingConfig configures the periodic process samplers.
type SamplingConfig struct {
	Samplers []SamplerConfig `yaml:"samplers"`
}

// SamplerConfig configures one counter kind's sampler.
type SamplerConfig struct {
	// Kind is the counter to sample (e.g., "reductions", "heap_size")
	Kind string `yaml:"kind"`

	// Metric is the sink metric identity observations are recorded under
	Metric string `yaml:"metric"`

	// Interval between sampling ticks
	Interval time.Duration `yaml:"interval"`

	// Delta selects rate-like sampling: emit current minus the prior
	// tick's value instead of the raw counter. Only meaningful for
	// monotonically increasing counters.
	Delta bool `yaml:"delta"`
}

// UnmarshalYAML decodes a sampler config, accepting "10s"-style
// duration strings for the interval.
func (s *SamplerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Kind     string `yaml:"kind"`
		Metric   string `yaml:"metric"`
		Interval string `yaml:"interval"`
		Delta    bool   `yaml:"delta"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.Kind = raw.Kind
	s.Metric = raw.Metric
	s.Delta = raw.Delta
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("invalid sampler interval %q: %w", raw.Interval, ErrInvalidConfiguration)
		}
		s.Interval = d
	}
	return nil
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Option is a functional option for configuring the pipeline
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// The default sampler set tracks the three classic worker counters.
func DefaultConfig() *Config {
	cfg := &Config{
		ServiceName: "teletap",
		Tagging: TaggingConfig{
			MinSegment: 2,
			MaxSegment: 15,
		},
		Sampling: SamplingConfig{
			Samplers: []SamplerConfig{
				{Kind: "reductions", Metric: "proc.reductions", Interval: 10 * time.Second, Delta: true},
				{Kind: "heap_size", Metric: "proc.heap_size", Interval: 10 * time.Second},
				{Kind: "queue_length", Metric: "proc.queue_length", Interval: 10 * time.Second},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		cfg.Logging.Format = "json" // Structured logs for K8s
	}

	return cfg
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are
// overridden by functional options.
//
// Variable naming convention: TELETAP_<SETTING>, plus the standard
// REDIS_URL.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TELETAP_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("TELETAP_REDIS_URL"); v != "" {
		c.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("TELETAP_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TELETAP_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("TELETAP_IGNORE_ROUTES"); v != "" {
		c.Tagging.IgnoreRoutes = splitAndTrim(v)
	}
	if v := os.Getenv("TELETAP_SAMPLE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TELETAP_SAMPLE_INTERVAL %q: %w", v, ErrInvalidConfiguration)
		}
		for i := range c.Sampling.Samplers {
			c.Sampling.Samplers[i].Interval = d
		}
	}
	if v := os.Getenv("TELETAP_MIN_SEGMENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tagging.MinSegment = n
		}
	}
	if v := os.Getenv("TELETAP_MAX_SEGMENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tagging.MaxSegment = n
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
// File values override whatever is already set on the receiver.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, ErrInvalidConfiguration)
	}
	return nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required: %w", ErrMissingConfiguration)
	}
	if c.Tagging.MinSegment >= c.Tagging.MaxSegment {
		return fmt.Errorf("segment length band [%d, %d) is empty: %w",
			c.Tagging.MinSegment, c.Tagging.MaxSegment, ErrInvalidConfiguration)
	}
	seen := make(map[string]bool)
	for _, s := range c.Sampling.Samplers {
		if s.Kind == "" {
			return fmt.Errorf("sampler kind is required: %w", ErrMissingConfiguration)
		}
		if s.Metric == "" {
			return fmt.Errorf("sampler %s has no metric: %w", s.Kind, ErrMissingConfiguration)
		}
		if s.Interval <= 0 {
			return fmt.Errorf("sampler %s has non-positive interval: %w", s.Kind, ErrInvalidConfiguration)
		}
		if seen[s.Kind] {
			return fmt.Errorf("duplicate sampler kind %s: %w", s.Kind, ErrInvalidConfiguration)
		}
		seen[s.Kind] = true
	}
	return nil
}

// NewConfig creates a configuration with the three-layer priority:
// defaults, then environment, then the supplied options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithServiceName sets the service name used in logs and metrics
func WithServiceName(name string) Option {
	return func(c *Config) error {
		c.ServiceName = name
		return nil
	}
}

// WithRedisURL enables the Redis-backed delta store
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.RedisURL = url
		return nil
	}
}

// WithSubstitution appends one path substitution rule
func WithSubstitution(from, to string) Option {
	return func(c *Config) error {
		if from == "" {
			return fmt.Errorf("substitution source is empty: %w", ErrInvalidConfiguration)
		}
		c.Tagging.Substitutions = append(c.Tagging.Substitutions, Substitution{From: from, To: to})
		return nil
	}
}

// WithIgnoreRoutes sets the first-segment ignore list
func WithIgnoreRoutes(routes ...string) Option {
	return func(c *Config) error {
		c.Tagging.IgnoreRoutes = routes
		return nil
	}
}

// WithAllowShape carves a route shape out of the ignore list
func WithAllowShape(first string, segments int) Option {
	return func(c *Config) error {
		c.Tagging.AllowShapes = append(c.Tagging.AllowShapes, ShapeConfig{First: first, Segments: segments})
		return nil
	}
}

// WithSegmentBand overrides the path-segment length band
func WithSegmentBand(min, max int) Option {
	return func(c *Config) error {
		c.Tagging.MinSegment = min
		c.Tagging.MaxSegment = max
		return nil
	}
}

// WithSampler replaces or appends the sampler configuration for a kind
func WithSampler(kind, metric string, interval time.Duration, delta bool) Option {
	return func(c *Config) error {
		sc := SamplerConfig{Kind: kind, Metric: metric, Interval: interval, Delta: delta}
		for i := range c.Sampling.Samplers {
			if c.Sampling.Samplers[i].Kind == kind {
				c.Sampling.Samplers[i] = sc
				return nil
			}
		}
		c.Sampling.Samplers = append(c.Sampling.Samplers, sc)
		return nil
	}
}

// WithoutSamplers removes all configured samplers (tag extraction only)
func WithoutSamplers() Option {
	return func(c *Config) error {
		c.Sampling.Samplers = nil
		return nil
	}
}

// WithLogLevel sets the log level
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = strings.ToLower(level)
		return nil
	}
}

// WithConfigFile loads configuration from a YAML file.
// Place this option before others that should override file values.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
