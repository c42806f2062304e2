package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Event-related errors
	ErrMalformedEvent = errors.New("malformed event")

	// Sampling-related errors
	ErrNoProcesses = errors.New("no tracked processes")
	ErrUnknownKind = errors.New("unknown counter kind")
	ErrStoreFailed = errors.New("delta store operation failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// State errors
	ErrAlreadyStarted = errors.New("already started")
	ErrAlreadyStopped = errors.New("already stopped")
	ErrNotInitialized = errors.New("not initialized")

	// Network errors
	ErrConnectionFailed = errors.New("connection failed")
)

// PipelineError provides structured error information with context
// It implements the error interface and supports error wrapping
type PipelineError struct {
	Op      string // Operation that failed (e.g., "sampler.Sample")
	Kind    string // Error kind (e.g., "tagging", "sampling", "config")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *PipelineError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(op, kind string, err error) *PipelineError {
	return &PipelineError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsTickError checks if an error only invalidates a single sampling tick.
// Tick errors are logged and skipped; they never stop the runner.
func IsTickError(err error) bool {
	return errors.Is(err, ErrNoProcesses) ||
		errors.Is(err, ErrStoreFailed)
}
