package retry

import "fmt"

// Kind identifies which variant of Outcome an attempt produced.
type Kind int

// Outcome kinds.
const (
	KindSuccess Kind = iota + 1
	KindRetryable
	KindSkip
	KindFatal
)

// String returns the lowercase name used in logs.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRetryable:
		return "retryable"
	case KindSkip:
		return "skip"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reasons attached to terminal outcomes produced by the executor itself.
const (
	ReasonParse            = "parse error"
	ReasonEmpty            = "empty content"
	ReasonRetriesExhausted = "retries exhausted"
	ReasonUpstream         = "upstream error"
	ReasonCancelled        = "cancelled"
	ReasonUnprocessable    = "unprocessable input"
)

// Outcome is the tagged result of a call. Payload is only meaningful when
// Kind is KindSuccess. Err carries the classified error for Skip and Fatal
// outcomes and wraps one of the package sentinels.
type Outcome[T any] struct {
	Kind     Kind
	Payload  T
	Reason   string
	Err      error
	Attempts int
}

// Success builds a successful outcome.
func Success[T any](payload T) Outcome[T] {
	return Outcome[T]{Kind: KindSuccess, Payload: payload}
}

// Skip builds a skip outcome. The returned Err always wraps ErrUnprocessableInput.
func Skip[T any](reason string, cause error) Outcome[T] {
	return Outcome[T]{Kind: KindSkip, Reason: reason, Err: wrap(ErrUnprocessableInput, cause)}
}

// Fatal builds a fatal outcome. sentinel must be one of the package errors.
func Fatal[T any](reason string, sentinel, cause error) Outcome[T] {
	return Outcome[T]{Kind: KindFatal, Reason: reason, Err: wrap(sentinel, cause)}
}

// OK reports whether the outcome carries a payload.
func (o Outcome[T]) OK() bool {
	return o.Kind == KindSuccess
}

// Error returns nil for a successful outcome and the classified error otherwise.
func (o Outcome[T]) Error() error {
	if o.Kind == KindSuccess {
		return nil
	}
	if o.Err != nil {
		return o.Err
	}
	return fmt.Errorf("%w: %s", ErrUpstreamService, o.Reason)
}

func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
