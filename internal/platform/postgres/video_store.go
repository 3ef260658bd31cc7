package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// PostgresVideoTaskReader implements store.VideoTaskReader over the
// video_tasks table written by the upload service.
type PostgresVideoTaskReader struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVideoTaskReader creates a reader on db.
func NewPostgresVideoTaskReader(db store.DBTX, logger *slog.Logger) *PostgresVideoTaskReader {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresVideoTaskReader{
		db:     db,
		logger: logger.With(slog.String("component", "video_task_reader")),
	}
}

var _ store.VideoTaskReader = (*PostgresVideoTaskReader)(nil)

// GetVideoTask implements store.VideoTaskReader.GetVideoTask.
func (r *PostgresVideoTaskReader) GetVideoTask(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error) {
	var v domain.VideoTask
	err := r.db.QueryRowContext(ctx,
		`SELECT id, shop_name, shop_type, language, description FROM video_tasks WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.ShopName, &v.ShopType, &v.Language, &v.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVideoTaskNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get video task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("video_task", "get", "query failed", MapError(err))
	}
	return &v, nil
}
