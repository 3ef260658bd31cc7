package retry

import (
	"fmt"
	"math"
	"time"
)

// Policy is the immutable retry configuration for one provider integration.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// BackoffMultiplier scales the delay for every further attempt.
	BackoffMultiplier float64

	// AttemptTimeout bounds every single attempt. Zero disables it.
	AttemptTimeout time.Duration

	// Classifier decides what a failed attempt means. Nil uses DefaultClassifier.
	Classifier Classifier
}

// ChatPolicy returns the default policy for chat-completion generation:
// 2 retries, 5s initial backoff.
func ChatPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		InitialDelay:      5 * time.Second,
		BackoffMultiplier: 2,
		AttemptTimeout:    60 * time.Second,
	}
}

// VisionPolicy returns the default policy for frame analysis:
// 3 retries, 1s initial backoff.
func VisionPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
		AttemptTimeout:    30 * time.Second,
	}
}

// SpeechPolicy returns the default policy for speech synthesis:
// 3 retries, 1s initial backoff doubling each attempt.
func SpeechPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
		AttemptTimeout:    30 * time.Second,
	}
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("%w: initial delay cannot be negative", ErrInvalidPolicy)
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be at least 1, got %v", ErrInvalidPolicy, p.BackoffMultiplier)
	}
	if p.AttemptTimeout < 0 {
		return fmt.Errorf("%w: attempt timeout cannot be negative", ErrInvalidPolicy)
	}
	return nil
}

// Delay returns the wait after the given failed attempt (1-based):
// InitialDelay * BackoffMultiplier^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := p.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	d := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p Policy) classify(err error) Kind {
	if p.Classifier != nil {
		return p.Classifier(err)
	}
	return DefaultClassifier(err)
}
