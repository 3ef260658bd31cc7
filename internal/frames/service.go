package frames

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

// Service analyzes the frames of a video task and persists the outcome.
type Service struct {
	pipeline *Pipeline
	frames   store.FrameStore
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(pipeline *Pipeline, frames store.FrameStore, logger *slog.Logger) (*Service, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if frames == nil {
		return nil, errors.New("frame store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Service{
		pipeline: pipeline,
		frames:   frames,
		logger:   logger.With(slog.String("component", "frame_service")),
	}, nil
}

// AnalyzeAndStore runs the batch and replaces the stored analyses of the
// task in one transaction. Nothing is written when the batch is cancelled.
func (s *Service) AnalyzeAndStore(
	ctx context.Context,
	taskID uuid.UUID,
	frames []domain.Frame,
	progress ProgressFunc,
) (*BatchResult, error) {
	if taskID == uuid.Nil {
		return nil, fmt.Errorf("%w: task id cannot be empty", domain.ErrValidation)
	}

	result, err := s.pipeline.AnalyzeBatch(ctx, frames, progress)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.frames.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.frames.WithTx(tx).ReplaceAnalyses(ctx, taskID, result.Analyses, result.Recommendations)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store frame analyses",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to store frame analyses: %w", err)
	}

	s.logger.InfoContext(ctx, "frame analyses stored",
		slog.String("task_id", taskID.String()),
		slog.Int("frame_count", len(result.Analyses)))
	return result, nil
}

// Recommendations returns the stored analyses and recommended frames of a task.
func (s *Service) Recommendations(ctx context.Context, taskID uuid.UUID) (*BatchResult, error) {
	analyses, err := s.frames.ListAnalyses(ctx, taskID)
	if err != nil {
		return nil, err
	}
	recommended, err := s.frames.ListRecommended(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Analyses: analyses, Recommendations: recommended}
	for _, a := range analyses {
		switch {
		case a.Success:
			result.Succeeded++
		case a.Skipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}
	return result, nil
}
