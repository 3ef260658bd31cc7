package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// GenerationStore persists the latest generation attempt per entity and kind.
type GenerationStore interface {
	// Get returns the stored attempt.
	// Returns ErrGenerationNotFound if nothing has been generated yet.
	Get(ctx context.Context, entityID uuid.UUID, kind domain.GenerationKind) (*domain.GenerationAttempt, error)

	// Create stores the first attempt (index 0). If a row already exists the
	// existing row is returned unchanged and created is false.
	Create(ctx context.Context, attempt *domain.GenerationAttempt) (stored *domain.GenerationAttempt, created bool, err error)

	// Advance replaces content and attempt index in one statement, only if
	// the stored index still equals expectedIndex.
	// Returns ErrConflict if another writer advanced the row first.
	Advance(ctx context.Context, attempt *domain.GenerationAttempt, expectedIndex int) error

	// MarkPublished records that the completion event for the given attempt
	// was published. A newer attempt is left untouched.
	MarkPublished(ctx context.Context, entityID uuid.UUID, kind domain.GenerationKind, attemptIndex int, at time.Time) error

	// ListUnpublished returns committed attempts whose event was never
	// published and that are older than olderThan, oldest first.
	ListUnpublished(ctx context.Context, olderThan time.Time, limit int) ([]*domain.GenerationAttempt, error)

	// WithTx returns a GenerationStore that runs on the given transaction.
	WithTx(tx *sql.Tx) GenerationStore
}
