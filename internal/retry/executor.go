package retry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/reelgen-api/internal/redact"
	"github.com/rs/xid"
)

// Call binds one provider request to the executor.
//
// Send issues a single attempt and returns the raw response. Parse converts a
// raw response into the payload; a parse error is fatal and never retried.
// Send may also report a parse failure by wrapping ErrResponseParse.
// Empty, when set, reports whether a raw response carries a blank payload.
type Call[R, T any] struct {
	Op    string
	Send  func(ctx context.Context) (R, error)
	Parse func(raw R) (T, error)
	Empty func(raw R) bool
}

// Passthrough is a Parse function for calls whose raw response is already the payload.
func Passthrough[T any](raw T) (T, error) {
	return raw, nil
}

// BlankString is an Empty function for text responses.
func BlankString(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs Calls under a Policy. It holds no per-call state and is safe
// for concurrent use.
type Executor struct {
	logger *slog.Logger
	sleep  SleepFunc
}

// Option customizes an Executor.
type Option func(*Executor)

// WithSleep replaces the backoff wait. Tests use it to avoid real delays.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// NewExecutor creates an Executor.
func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		logger: logger.With("component", "retry_executor"),
		sleep:  sleepWithContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs call under policy and returns a terminal outcome: Success,
// Skip or Fatal. Backoff suspends only the calling goroutine.
func Execute[R, T any](ctx context.Context, e *Executor, call Call[R, T], policy Policy) Outcome[T] {
	if err := policy.Validate(); err != nil {
		return Fatal[T](ReasonUpstream, ErrUpstreamService, err)
	}
	if call.Parse == nil {
		panic("retry: Call.Parse is required")
	}

	requestID := xid.New().String()
	log := e.logger.With(
		"op", call.Op,
		"request_id", requestID,
		"max_attempts", policy.MaxAttempts,
	)

	for attempt := 1; ; attempt++ {
		raw, err := sendAttempt(ctx, call, policy.AttemptTimeout)

		if err != nil {
			if ctx.Err() != nil {
				log.WarnContext(ctx, "call abandoned, caller cancelled",
					"attempt", attempt,
					"ctx_err", ctx.Err())
				out := Fatal[T](ReasonCancelled, ctx.Err(), nil)
				out.Attempts = attempt
				return out
			}

			kind := policy.classify(err)
			switch kind {
			case KindSkip:
				log.InfoContext(ctx, "provider rejected input, skipping",
					"attempt", attempt,
					"error", redact.Error(err))
				out := Skip[T](ReasonUnprocessable, err)
				out.Attempts = attempt
				return out

			case KindRetryable:
				if attempt >= policy.MaxAttempts {
					log.WarnContext(ctx, "transient failures exhausted all attempts",
						"attempt", attempt,
						"error", redact.Error(err))
					out := Fatal[T](ReasonRetriesExhausted, ErrRetriesExhausted, err)
					out.Attempts = attempt
					return out
				}

				delay := policy.Delay(attempt)
				log.InfoContext(ctx, "transient provider failure, retrying after delay",
					"attempt", attempt,
					"delay", delay,
					"error", redact.Error(err))

				if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
					out := Fatal[T](ReasonCancelled, sleepErr, nil)
					out.Attempts = attempt
					return out
				}
				continue

			default:
				if errors.Is(err, ErrResponseParse) {
					log.WarnContext(ctx, "failed to parse provider response",
						"attempt", attempt,
						"error", redact.Error(err))
					out := Fatal[T](ReasonParse, ErrResponseParse, err)
					out.Attempts = attempt
					return out
				}
				log.ErrorContext(ctx, "provider call failed",
					"attempt", attempt,
					"error", redact.Error(err))
				out := Fatal[T](ReasonUpstream, ErrUpstreamService, err)
				out.Attempts = attempt
				return out
			}
		}

		if call.Empty != nil && call.Empty(raw) {
			log.WarnContext(ctx, "provider returned empty content", "attempt", attempt)
			out := Fatal[T](ReasonEmpty, ErrEmptyContent, nil)
			out.Attempts = attempt
			return out
		}

		payload, err := call.Parse(raw)
		if err != nil {
			log.WarnContext(ctx, "failed to parse provider response",
				"attempt", attempt,
				"error", err)
			out := Fatal[T](ReasonParse, ErrResponseParse, err)
			out.Attempts = attempt
			return out
		}

		log.DebugContext(ctx, "provider call succeeded", "attempt", attempt)
		out := Success(payload)
		out.Attempts = attempt
		return out
	}
}

// sendAttempt runs one Send under the per-attempt timeout. An attempt that
// hits its own deadline reports ErrTransientUpstreamTimeout so it feeds the
// normal retry path.
func sendAttempt[R, T any](ctx context.Context, call Call[R, T], timeout time.Duration) (R, error) {
	attemptCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	raw, err := call.Send(attemptCtx)
	if err != nil && ctx.Err() == nil && attemptCtx.Err() != nil {
		var zero R
		return zero, ErrTransientUpstreamTimeout
	}
	return raw, err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
