package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/platform/logger"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// PostgresFrameStore implements store.FrameStore.
type PostgresFrameStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresFrameStore creates a frame store backed by conn.
func NewPostgresFrameStore(conn *sql.DB, logger *slog.Logger) *PostgresFrameStore {
	if conn == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFrameStore{
		db:     conn,
		conn:   conn,
		logger: logger.With(slog.String("component", "frame_store")),
	}
}

var _ store.FrameStore = (*PostgresFrameStore)(nil)

// ReplaceAnalyses implements store.FrameStore.ReplaceAnalyses.
func (s *PostgresFrameStore) ReplaceAnalyses(
	ctx context.Context,
	taskID uuid.UUID,
	analyses []domain.FrameAnalysis,
	recommended domain.RecommendationSet,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM frame_analyses WHERE task_id = $1`, taskID); err != nil {
		log.Error("failed to clear frame analyses",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("frame_analysis", "replace", "delete failed", MapError(err))
	}

	ranks := make(map[int64]int)
	for _, ids := range recommended {
		for rank, id := range ids {
			ranks[id] = rank + 1
		}
	}

	query := `INSERT INTO frame_analyses
		(task_id, frame_id, category, tags, quality_score, description,
		 success, skipped, error_message, recommended, recommended_rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, a := range analyses {
		tags := a.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return store.NewStoreError("frame_analysis", "replace", "encode tags", err)
		}

		var rank sql.NullInt32
		if r, ok := ranks[a.FrameID]; ok {
			rank = sql.NullInt32{Int32: int32(r), Valid: true}
		}

		if _, err := s.db.ExecContext(ctx, query,
			taskID,
			a.FrameID,
			string(a.Category),
			string(tagsJSON),
			a.QualityScore,
			a.Description,
			a.Success,
			a.Skipped,
			a.ErrorMessage,
			rank.Valid,
			rank,
		); err != nil {
			log.Error("failed to insert frame analysis",
				slog.String("task_id", taskID.String()),
				slog.Int64("frame_id", a.FrameID),
				slog.String("error", err.Error()))
			if IsCheckConstraintViolation(err) {
				return store.NewStoreError("frame_analysis", "replace",
					fmt.Sprintf("insert frame %d rejected by %s", a.FrameID, ConstraintName(err)),
					store.ErrInvalidEntity)
			}
			return store.NewStoreError("frame_analysis", "replace",
				fmt.Sprintf("insert frame %d", a.FrameID), MapError(err))
		}
	}

	log.Debug("frame analyses replaced",
		slog.String("task_id", taskID.String()),
		slog.Int("count", len(analyses)),
		slog.Int("recommended", len(ranks)))
	return nil
}

// ListAnalyses implements store.FrameStore.ListAnalyses.
func (s *PostgresFrameStore) ListAnalyses(ctx context.Context, taskID uuid.UUID) ([]domain.FrameAnalysis, error) {
	query := `SELECT frame_id, category, tags, quality_score, description, success, skipped, error_message
		FROM frame_analyses
		WHERE task_id = $1
		ORDER BY frame_id ASC`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, store.NewStoreError("frame_analysis", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var analyses []domain.FrameAnalysis
	for rows.Next() {
		var (
			a        domain.FrameAnalysis
			category string
			tags     []byte
		)
		if err := rows.Scan(
			&a.FrameID,
			&category,
			&tags,
			&a.QualityScore,
			&a.Description,
			&a.Success,
			&a.Skipped,
			&a.ErrorMessage,
		); err != nil {
			return nil, store.NewStoreError("frame_analysis", "list", "scan failed", MapError(err))
		}
		a.Category = domain.FrameCategory(category)
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &a.Tags); err != nil {
				return nil, store.NewStoreError("frame_analysis", "list", "decode tags", err)
			}
		}
		if len(a.Tags) == 0 {
			a.Tags = nil
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("frame_analysis", "list", "row iteration failed", MapError(err))
	}
	return analyses, nil
}

// ListRecommended implements store.FrameStore.ListRecommended. Every
// category is present in the result, possibly with no frames.
func (s *PostgresFrameStore) ListRecommended(ctx context.Context, taskID uuid.UUID) (domain.RecommendationSet, error) {
	query := `SELECT category, frame_id
		FROM frame_analyses
		WHERE task_id = $1 AND recommended
		ORDER BY category, recommended_rank ASC`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, store.NewStoreError("frame_analysis", "list_recommended", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	set := make(domain.RecommendationSet, len(domain.Categories))
	for _, c := range domain.Categories {
		set[c] = []int64{}
	}
	for rows.Next() {
		var (
			category string
			frameID  int64
		)
		if err := rows.Scan(&category, &frameID); err != nil {
			return nil, store.NewStoreError("frame_analysis", "list_recommended", "scan failed", MapError(err))
		}
		c := domain.ParseFrameCategory(category)
		set[c] = append(set[c], frameID)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("frame_analysis", "list_recommended", "row iteration failed", MapError(err))
	}
	return set, nil
}

// WithTx implements store.FrameStore.WithTx.
func (s *PostgresFrameStore) WithTx(tx *sql.Tx) store.FrameStore {
	return &PostgresFrameStore{db: tx, conn: s.conn, logger: s.logger}
}

// DB implements store.FrameStore.DB.
func (s *PostgresFrameStore) DB() *sql.DB {
	return s.conn
}
