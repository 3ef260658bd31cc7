package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/platform/postgres"
	"github.com/phrazzld/reelgen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrameStore(t *testing.T) (*postgres.PostgresFrameStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.NewPostgresFrameStore(db, discardLogger()), mock
}

func TestPostgresFrameStore_ReplaceAnalyses(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	noodles, err := domain.NewFrameAnalysis(11, "food", []string{"noodles", "steam"}, 88, "bowl of ramen")
	require.NoError(t, err)
	counter, err := domain.NewFrameAnalysis(12, "environment", nil, 40, "")
	require.NoError(t, err)
	failed := domain.FailedFrameAnalysis(13, "vision timeout")

	recommended := domain.RecommendationSet{
		domain.CategoryFood:        {11},
		domain.CategoryPerson:      {},
		domain.CategoryEnvironment: {},
		domain.CategoryOther:       {},
	}

	insert := regexp.QuoteMeta("INSERT INTO frame_analyses")

	t.Run("replaces every row", func(t *testing.T) {
		t.Parallel()
		s, mock := newFrameStore(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM frame_analyses")).
			WithArgs(taskID).
			WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(insert).
			WithArgs(taskID, int64(11), "food", `["noodles","steam"]`, 88, "bowl of ramen", true, false, "", true, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).
			WithArgs(taskID, int64(12), "environment", `[]`, 40, "", true, false, "", false, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).
			WithArgs(taskID, int64(13), "", `[]`, 0, "", false, false, "vision timeout", false, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.ReplaceAnalyses(context.Background(), taskID, []domain.FrameAnalysis{noodles, counter, failed}, recommended)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure stops", func(t *testing.T) {
		t.Parallel()
		s, mock := newFrameStore(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM frame_analyses")).WillReturnResult(sqlmock.NewResult(0, 0))
		scoreErr := newPgError("23514")
		scoreErr.ConstraintName = "frame_analyses_score_check"
		mock.ExpectExec(insert).WillReturnError(scoreErr)

		err := s.ReplaceAnalyses(context.Background(), taskID, []domain.FrameAnalysis{noodles, counter}, recommended)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "insert frame 11 rejected by frame_analyses_score_check")
		var pgErr *pgconn.PgError
		assert.False(t, errors.As(err, &pgErr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other insert failure is mapped", func(t *testing.T) {
		t.Parallel()
		s, mock := newFrameStore(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM frame_analyses")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(insert).WillReturnError(newPgError("23505"))

		err := s.ReplaceAnalyses(context.Background(), taskID, []domain.FrameAnalysis{noodles}, recommended)
		assert.ErrorIs(t, err, store.ErrDuplicate)
		assert.Contains(t, err.Error(), "insert frame 11")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete failure", func(t *testing.T) {
		t.Parallel()
		s, mock := newFrameStore(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM frame_analyses")).WillReturnError(errors.New("connection reset"))

		err := s.ReplaceAnalyses(context.Background(), taskID, []domain.FrameAnalysis{noodles}, recommended)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "replace", storeErr.Operation)
	})
}

func TestPostgresFrameStore_ListAnalyses(t *testing.T) {
	t.Parallel()

	s, mock := newFrameStore(t)
	taskID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"frame_id", "category", "tags", "quality_score", "description", "success", "skipped", "error_message",
	}).
		AddRow(int64(11), "food", []byte(`["noodles"]`), 88, "bowl of ramen", true, false, "").
		AddRow(int64(13), "", []byte(`[]`), 0, "", false, true, "content filtered")
	mock.ExpectQuery(regexp.QuoteMeta("FROM frame_analyses")).
		WithArgs(taskID).
		WillReturnRows(rows)

	analyses, err := s.ListAnalyses(context.Background(), taskID)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, domain.CategoryFood, analyses[0].Category)
	assert.Equal(t, []string{"noodles"}, analyses[0].Tags)
	assert.True(t, analyses[1].Skipped)
	assert.Nil(t, analyses[1].Tags)
	assert.Equal(t, "content filtered", analyses[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFrameStore_ListRecommended(t *testing.T) {
	t.Parallel()

	t.Run("grouped by category", func(t *testing.T) {
		t.Parallel()
		s, mock := newFrameStore(t)
		taskID := uuid.New()

		rows := sqlmock.NewRows([]string{"category", "frame_id"}).
			AddRow("food", int64(21)).
			AddRow("food", int64(7)).
			AddRow("person", int64(3))
		mock.ExpectQuery(regexp.QuoteMeta("AND recommended")).
			WithArgs(taskID).
			WillReturnRows(rows)

		set, err := s.ListRecommended(context.Background(), taskID)
		require.NoError(t, err)
		assert.Equal(t, []int64{21, 7}, set[domain.CategoryFood])
		assert.Equal(t, []int64{3}, set[domain.CategoryPerson])
		assert.Equal(t, []int64{}, set[domain.CategoryEnvironment])
		assert.Len(t, set, len(domain.Categories))
	})

	t.Run("nothing analyzed", func(t *testing.T) {
		t.Parallel()
		s, mock := newFrameStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("AND recommended")).
			WillReturnRows(sqlmock.NewRows([]string{"category", "frame_id"}))

		set, err := s.ListRecommended(context.Background(), uuid.New())
		require.NoError(t, err)
		for _, c := range domain.Categories {
			assert.NotNil(t, set[c], string(c))
			assert.Empty(t, set[c], string(c))
		}
	})
}

func TestPostgresFrameStore_WithTx(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	s := postgres.NewPostgresFrameStore(db, discardLogger())
	assert.Same(t, db, s.DB())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM frame_analyses")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	txStore := s.WithTx(tx)
	assert.Same(t, db, txStore.DB())
	require.NoError(t, txStore.ReplaceAnalyses(context.Background(), uuid.New(), nil, nil))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
