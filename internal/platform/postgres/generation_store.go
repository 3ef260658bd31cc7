package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/platform/logger"
	"github.com/phrazzld/reelgen-api/internal/store"
)

const generationColumns = `entity_id, kind, attempt_index, temperature, content, defaulted, cached_at, published_at`

// PostgresGenerationStore implements store.GenerationStore. One row per
// entity and kind holds the latest attempt.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a generation store on db, which may be a
// connection pool or a transaction.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*domain.GenerationAttempt, error) {
	var (
		a           domain.GenerationAttempt
		kind        string
		content     []byte
		publishedAt sql.NullTime
	)
	if err := row.Scan(
		&a.EntityID,
		&kind,
		&a.AttemptIndex,
		&a.Temperature,
		&content,
		&a.Defaulted,
		&a.CachedAt,
		&publishedAt,
	); err != nil {
		return nil, err
	}
	a.Kind = domain.GenerationKind(kind)
	a.Content = content
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	return &a, nil
}

// Get implements store.GenerationStore.Get.
func (s *PostgresGenerationStore) Get(
	ctx context.Context,
	entityID uuid.UUID,
	kind domain.GenerationKind,
) (*domain.GenerationAttempt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + generationColumns + `
		FROM generation_attempts
		WHERE entity_id = $1 AND kind = $2`

	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, entityID, string(kind)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation attempt",
			slog.String("entity_id", entityID.String()),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("generation_attempt", "get", "query failed", MapError(err))
	}
	return a, nil
}

// Create implements store.GenerationStore.Create. A concurrent first insert
// for the same entity and kind is not an error: the winner's row is returned.
func (s *PostgresGenerationStore) Create(
	ctx context.Context,
	attempt *domain.GenerationAttempt,
) (*domain.GenerationAttempt, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := attempt.Validate(); err != nil {
		return nil, false, store.NewStoreError("generation_attempt", "create", "validation failed",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	query := `INSERT INTO generation_attempts (` + generationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (entity_id, kind) DO NOTHING
		RETURNING ` + generationColumns

	stored, err := scanAttempt(s.db.QueryRowContext(ctx, query,
		attempt.EntityID,
		string(attempt.Kind),
		attempt.AttemptIndex,
		attempt.Temperature,
		string(attempt.Content),
		attempt.Defaulted,
		attempt.CachedAt.UTC(),
	))
	if err == nil {
		log.Debug("generation attempt created",
			slog.String("entity_id", attempt.EntityID.String()),
			slog.String("kind", string(attempt.Kind)))
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to create generation attempt",
			slog.String("entity_id", attempt.EntityID.String()),
			slog.String("kind", string(attempt.Kind)),
			slog.String("error", err.Error()))
		return nil, false, store.NewStoreError("generation_attempt", "create", "insert failed", MapError(err))
	}

	existing, err := s.Get(ctx, attempt.EntityID, attempt.Kind)
	if err != nil {
		return nil, false, err
	}
	log.Debug("generation attempt already existed",
		slog.String("entity_id", attempt.EntityID.String()),
		slog.String("kind", string(attempt.Kind)),
		slog.Int("attempt_index", existing.AttemptIndex))
	return existing, false, nil
}

// Advance implements store.GenerationStore.Advance. Content, index and
// temperature change in one conditional statement, and the publish marker is
// cleared so the new attempt is republished if its event is lost.
func (s *PostgresGenerationStore) Advance(
	ctx context.Context,
	attempt *domain.GenerationAttempt,
	expectedIndex int,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := attempt.Validate(); err != nil {
		return store.NewStoreError("generation_attempt", "advance", "validation failed",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	query := `UPDATE generation_attempts
		SET attempt_index = $1,
			temperature = $2,
			content = $3,
			defaulted = $4,
			cached_at = $5,
			published_at = NULL
		WHERE entity_id = $6 AND kind = $7 AND attempt_index = $8`

	result, err := s.db.ExecContext(ctx, query,
		attempt.AttemptIndex,
		attempt.Temperature,
		string(attempt.Content),
		attempt.Defaulted,
		attempt.CachedAt.UTC(),
		attempt.EntityID,
		string(attempt.Kind),
		expectedIndex,
	)
	if err != nil {
		log.Error("failed to advance generation attempt",
			slog.String("entity_id", attempt.EntityID.String()),
			slog.String("kind", string(attempt.Kind)),
			slog.String("error", err.Error()))
		return store.NewStoreError("generation_attempt", "advance", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, "generation attempt"); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.NewStoreError("generation_attempt", "advance", "rows affected", err)
	}

	// Zero rows: either the row is gone or another writer advanced it.
	var current int
	err = s.db.QueryRowContext(ctx,
		`SELECT attempt_index FROM generation_attempts WHERE entity_id = $1 AND kind = $2`,
		attempt.EntityID, string(attempt.Kind),
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrGenerationNotFound
	case err != nil:
		return store.NewStoreError("generation_attempt", "advance", "conflict check failed", MapError(err))
	}

	log.Warn("generation attempt advanced concurrently",
		slog.String("entity_id", attempt.EntityID.String()),
		slog.String("kind", string(attempt.Kind)),
		slog.Int("expected_index", expectedIndex),
		slog.Int("current_index", current))
	return store.NewStoreError("generation_attempt", "advance",
		fmt.Sprintf("expected attempt %d, found %d", expectedIndex, current), store.ErrConflict)
}

// MarkPublished implements store.GenerationStore.MarkPublished. Marking an
// attempt that has since been superseded is a no-op.
func (s *PostgresGenerationStore) MarkPublished(
	ctx context.Context,
	entityID uuid.UUID,
	kind domain.GenerationKind,
	attemptIndex int,
	at time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE generation_attempts
		SET published_at = $1
		WHERE entity_id = $2 AND kind = $3 AND attempt_index = $4 AND published_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, at.UTC(), entityID, string(kind), attemptIndex)
	if err != nil {
		log.Error("failed to mark generation attempt published",
			slog.String("entity_id", entityID.String()),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return store.NewStoreError("generation_attempt", "mark_published", "update failed", MapError(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		log.Debug("publish marker not applied, attempt superseded or already published",
			slog.String("entity_id", entityID.String()),
			slog.String("kind", string(kind)),
			slog.Int("attempt_index", attemptIndex))
	}
	return nil
}

// ListUnpublished implements store.GenerationStore.ListUnpublished.
func (s *PostgresGenerationStore) ListUnpublished(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.GenerationAttempt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT ` + generationColumns + `
		FROM generation_attempts
		WHERE published_at IS NULL AND cached_at < $1
		ORDER BY cached_at ASC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, olderThan.UTC(), limit)
	if err != nil {
		log.Error("failed to list unpublished generation attempts", slog.String("error", err.Error()))
		return nil, store.NewStoreError("generation_attempt", "list_unpublished", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var attempts []*domain.GenerationAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, store.NewStoreError("generation_attempt", "list_unpublished", "scan failed", MapError(err))
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("generation_attempt", "list_unpublished", "row iteration failed", MapError(err))
	}
	return attempts, nil
}

// WithTx implements store.GenerationStore.WithTx.
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{db: tx, logger: s.logger}
}
