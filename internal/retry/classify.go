package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Classifier maps the error of a failed attempt to an outcome kind. It is
// only called with non-nil errors and must return KindRetryable, KindSkip or
// KindFatal.
type Classifier func(err error) Kind

// ClassifyStatus maps a provider status code to an outcome kind.
//
//	422 unprocessable content -> Skip
//	504 gateway timeout       -> Retryable
//	anything else             -> Fatal
func ClassifyStatus(statusCode int) Kind {
	switch statusCode {
	case http.StatusUnprocessableEntity:
		return KindSkip
	case http.StatusGatewayTimeout:
		return KindRetryable
	default:
		return KindFatal
	}
}

// DefaultClassifier classifies errors returned by adapters. Attempt timeouts
// and network timeouts are transient, StatusError goes through
// ClassifyStatus, and errors wrapping ErrUnprocessableInput are skipped.
func DefaultClassifier(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	if errors.Is(err, ErrUnprocessableInput) {
		return KindSkip
	}
	if errors.Is(err, ErrTransientUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindRetryable
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ClassifyStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindRetryable
	}

	return KindFatal
}
