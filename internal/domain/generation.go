package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationKind names a family of generated content.
type GenerationKind string

// Generation kinds.
const (
	KindScript        GenerationKind = "script"
	KindPublishAssist GenerationKind = "publish_assist"
)

// Valid reports whether k is a known kind.
func (k GenerationKind) Valid() bool {
	return k == KindScript || k == KindPublishAssist
}

// GenerationAttempt is the latest generated content for an entity and kind.
// AttemptIndex starts at 0 and grows by one per regeneration.
type GenerationAttempt struct {
	EntityID     uuid.UUID       `json:"entity_id"`
	Kind         GenerationKind  `json:"kind"`
	AttemptIndex int             `json:"attempt_index"`
	Temperature  float64         `json:"temperature"`
	Content      json.RawMessage `json:"content"`
	Defaulted    bool            `json:"defaulted"`
	CachedAt     time.Time       `json:"cached_at"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
}

// Validate checks the attempt before it is stored.
func (a *GenerationAttempt) Validate() error {
	if a.EntityID == uuid.Nil {
		return fmt.Errorf("%w: entity id cannot be empty", ErrInvalidID)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, a.Kind)
	}
	if a.AttemptIndex < 0 {
		return fmt.Errorf("%w: attempt index cannot be negative", ErrValidation)
	}
	if !json.Valid(a.Content) {
		return fmt.Errorf("%w: content is not valid JSON", ErrValidation)
	}
	return nil
}
