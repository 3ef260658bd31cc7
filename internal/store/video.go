package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// VideoTaskReader reads the video processing tasks owned by the surrounding
// system. The generation layer never writes them.
type VideoTaskReader interface {
	// GetVideoTask returns ErrVideoTaskNotFound if the task does not exist.
	GetVideoTask(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error)
}
