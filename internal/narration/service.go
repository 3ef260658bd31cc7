package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// ScriptSource returns the current script of a video task.
type ScriptSource func(ctx context.Context, taskID uuid.UUID) (*domain.Script, error)

// Service narrates the script of a video task and records the result.
type Service struct {
	synth   *Synthesizer
	scripts ScriptSource
	sink    Sink
	assets  store.NarrationStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(
	synth *Synthesizer,
	scripts ScriptSource,
	sink Sink,
	assets store.NarrationStore,
	logger *slog.Logger,
) (*Service, error) {
	if synth == nil {
		return nil, errors.New("synthesizer cannot be nil")
	}
	if scripts == nil {
		return nil, errors.New("script source cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("sink cannot be nil")
	}
	if assets == nil {
		return nil, errors.New("narration store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		synth:   synth,
		scripts: scripts,
		sink:    sink,
		assets:  assets,
		now:     time.Now,
		logger:  logger.With("component", "narration_service"),
	}, nil
}

// Narrate synthesizes the task's script, writes the audio and records where
// it went. Nothing is recorded unless every segment succeeded.
func (s *Service) Narrate(ctx context.Context, taskID uuid.UUID) (*domain.NarrationAsset, error) {
	script, err := s.scripts(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}

	n, err := s.synth.Synthesize(ctx, script.NarrationText())
	if err != nil {
		return nil, err
	}

	location, err := s.sink.Save(ctx, taskID, n)
	if err != nil {
		return nil, fmt.Errorf("save narration audio: %w", err)
	}

	asset := &domain.NarrationAsset{
		TaskID:          taskID,
		Location:        location,
		AudioEncoding:   n.AudioEncoding,
		SegmentCount:    len(n.Segments),
		DurationSeconds: n.DurationSeconds,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.assets.SaveNarration(ctx, asset); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "narration stored",
		"task_id", taskID,
		"segments", asset.SegmentCount,
		"duration_seconds", asset.DurationSeconds,
		"location", location)
	return asset, nil
}
