package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when the model call failed and no
	// content could be produced.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrRegenerationLimitExceeded is returned when an entity has used all
	// of its regenerations.
	ErrRegenerationLimitExceeded = errors.New("regeneration limit exceeded")

	// ErrConcurrentRegeneration is returned when another process advanced
	// the same entity while this one was generating.
	ErrConcurrentRegeneration = errors.New("entity was regenerated concurrently")

	// ErrInvalidConfig is returned when an orchestrator is misconfigured.
	ErrInvalidConfig = errors.New("invalid generation configuration")
)
