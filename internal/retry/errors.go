package retry

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every provider integration.
var (
	// ErrTransientUpstreamTimeout marks a single attempt that failed because
	// the upstream timed out or was momentarily unavailable.
	ErrTransientUpstreamTimeout = errors.New("transient upstream timeout")

	// ErrRetriesExhausted is returned when every allowed attempt ended in a
	// transient failure.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrUnprocessableInput is returned when the provider reports that the
	// input itself cannot be processed. Retrying will not help.
	ErrUnprocessableInput = errors.New("unprocessable input")

	// ErrUpstreamService is returned for non-retryable provider failures
	// (authentication, malformed request, server errors).
	ErrUpstreamService = errors.New("upstream service error")

	// ErrResponseParse is returned when a successful response could not be
	// decoded into the expected payload.
	ErrResponseParse = errors.New("response parse error")

	// ErrEmptyContent is returned when a successful response carried a blank payload.
	ErrEmptyContent = errors.New("empty content")

	// ErrInvalidPolicy is returned by Policy.Validate.
	ErrInvalidPolicy = errors.New("invalid retry policy")
)

// StatusError is the error adapters return when a provider answered with a
// non-success status. Classifiers inspect StatusCode.
type StatusError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns the underlying transport or SDK error.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError creates a StatusError.
func NewStatusError(statusCode int, message string, err error) *StatusError {
	return &StatusError{StatusCode: statusCode, Message: message, Err: err}
}
