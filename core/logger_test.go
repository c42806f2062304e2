package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*PipelineLogger, *bytes.Buffer) {
	t.Helper()
	logger := NewPipelineLogger("test-service")
	logger.SetLevel("DEBUG")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	return logger, buf
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.SetLevel("WARN")

	logger.Debug("debug msg", nil)
	logger.Info("info msg", nil)
	logger.Warn("warn msg", nil)

	out := buf.String()
	assert.NotContains(t, out, "debug msg")
	assert.NotContains(t, out, "info msg")
	assert.Contains(t, out, "warn msg")
}

func TestLoggerTextFormat(t *testing.T) {
	logger, buf := newTestLogger(t)

	logger.Info("tags extracted", map[string]interface{}{
		"metric": "request.duration_ms",
		"status": "200",
	})

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[teletap:test-service]")
	assert.Contains(t, out, "tags extracted")
	assert.Contains(t, out, "metric=request.duration_ms")
	assert.Contains(t, out, "status=200")
}

func TestLoggerJSONFormat(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.format = "json"

	logger.Warn("status absent", map[string]interface{}{"path": "/accounts"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "status absent", entry["message"])
	assert.Equal(t, "/accounts", entry["path"])
}

func TestLoggerErrorRateLimiting(t *testing.T) {
	logger, buf := newTestLogger(t)

	for i := 0; i < 10; i++ {
		logger.Error("backend down", nil)
	}

	// One per second max
	count := strings.Count(buf.String(), "backend down")
	assert.Equal(t, 1, count)
}

func TestLoggerErrorRateLimitingPerMessage(t *testing.T) {
	logger, buf := newTestLogger(t)

	// Distinct error messages are limited independently
	logger.Error("backend down", nil)
	logger.Error("store unreachable", nil)

	out := buf.String()
	assert.Contains(t, out, "backend down")
	assert.Contains(t, out, "store unreachable")
}

func TestLoggerTextDoesNotMutateFields(t *testing.T) {
	logger, buf := newTestLogger(t)

	fields := map[string]interface{}{
		"metric": "request.duration_ms",
		"error":  "boom",
		"status": "500",
	}
	logger.Error("record failed", fields)

	assert.Len(t, fields, 3)
	assert.Equal(t, "request.duration_ms", fields["metric"])
	assert.Equal(t, "boom", fields["error"])
	assert.Contains(t, buf.String(), "metric=request.duration_ms")
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(50 * time.Millisecond)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow("a"))
}
