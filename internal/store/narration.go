package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// NarrationStore records synthesized narration assets.
type NarrationStore interface {
	// SaveNarration stores the asset, replacing any earlier one for the task.
	SaveNarration(ctx context.Context, asset *domain.NarrationAsset) error

	// GetNarration returns ErrNotFound if no narration was synthesized.
	GetNarration(ctx context.Context, taskID uuid.UUID) (*domain.NarrationAsset, error)
}
