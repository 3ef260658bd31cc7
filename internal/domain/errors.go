package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidCategory is returned when a frame category is not recognised.
	ErrInvalidCategory = errors.New("invalid frame category")

	// ErrInvalidKind is returned when a generation kind is not recognised.
	ErrInvalidKind = errors.New("invalid generation kind")
)
