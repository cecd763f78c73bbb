package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the API layer.
var (
	// ErrNotFound covers both absent and not-owned resources so that
	// responses never leak whether a resource exists.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized means the caller is not authenticated or does not
	// own the resource.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries structured per-field messages for malformed
// input at the API boundary. It is never retried and never reaches the
// pipeline.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// NewValidationError creates a ValidationError from per-field messages.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NonRetriableError marks a pipeline failure as a logic or data error
// rather than a transient fault. The fulfillment worker dead-letters
// these instead of retrying.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return "non-retriable: " + e.Err.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NonRetriable wraps err so the worker will not retry it.
func NonRetriable(err error) error {
	return &NonRetriableError{Err: err}
}

// NonRetriablef formats a new non-retriable error.
func NonRetriablef(format string, args ...any) error {
	return &NonRetriableError{Err: fmt.Errorf(format, args...)}
}

// IsNonRetriable reports whether err is classified non-retriable.
func IsNonRetriable(err error) bool {
	var nre *NonRetriableError

	return errors.As(err, &nre)
}
