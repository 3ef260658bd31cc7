package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// PostgresNarrationStore implements store.NarrationStore.
type PostgresNarrationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNarrationStore creates a narration store on db.
func NewPostgresNarrationStore(db store.DBTX, logger *slog.Logger) *PostgresNarrationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNarrationStore{
		db:     db,
		logger: logger.With(slog.String("component", "narration_store")),
	}
}

var _ store.NarrationStore = (*PostgresNarrationStore)(nil)

// SaveNarration implements store.NarrationStore.SaveNarration.
func (s *PostgresNarrationStore) SaveNarration(ctx context.Context, asset *domain.NarrationAsset) error {
	query := `INSERT INTO narrations (task_id, location, audio_encoding, segment_count, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (task_id) DO UPDATE SET
			location = EXCLUDED.location,
			audio_encoding = EXCLUDED.audio_encoding,
			segment_count = EXCLUDED.segment_count,
			duration_seconds = EXCLUDED.duration_seconds,
			created_at = EXCLUDED.created_at`

	_, err := s.db.ExecContext(ctx, query,
		asset.TaskID,
		asset.Location,
		asset.AudioEncoding,
		asset.SegmentCount,
		asset.DurationSeconds,
		asset.CreatedAt.UTC(),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save narration",
			slog.String("task_id", asset.TaskID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("narration", "save", "upsert failed", MapError(err))
	}
	return nil
}

// GetNarration implements store.NarrationStore.GetNarration.
func (s *PostgresNarrationStore) GetNarration(ctx context.Context, taskID uuid.UUID) (*domain.NarrationAsset, error) {
	var a domain.NarrationAsset
	err := s.db.QueryRowContext(ctx,
		`SELECT task_id, location, audio_encoding, segment_count, duration_seconds, created_at
		FROM narrations WHERE task_id = $1`,
		taskID,
	).Scan(&a.TaskID, &a.Location, &a.AudioEncoding, &a.SegmentCount, &a.DurationSeconds, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: narration for task %s", store.ErrNotFound, taskID)
		}
		return nil, store.NewStoreError("narration", "get", "query failed", MapError(err))
	}
	return &a, nil
}
