package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// FrameStore persists frame analyses and recommendation flags for a video task.
type FrameStore interface {
	// ReplaceAnalyses removes every analysis of the task and stores the new
	// ones, flagging the recommended frames. Callers run it in a transaction.
	ReplaceAnalyses(ctx context.Context, taskID uuid.UUID, analyses []domain.FrameAnalysis, recommended domain.RecommendationSet) error

	// ListAnalyses returns the stored analyses of a task ordered by frame id.
	ListAnalyses(ctx context.Context, taskID uuid.UUID) ([]domain.FrameAnalysis, error)

	// ListRecommended returns the recommended frames of a task, best first
	// within each category.
	ListRecommended(ctx context.Context, taskID uuid.UUID) (domain.RecommendationSet, error)

	// WithTx returns a FrameStore that runs on the given transaction.
	WithTx(tx *sql.Tx) FrameStore

	// DB returns the underlying database connection.
	DB() *sql.DB
}
