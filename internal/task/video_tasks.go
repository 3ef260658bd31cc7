package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/frames"
)

// Common errors
var (
	ErrNilAnalyzer    = errors.New("frame analyzer cannot be nil")
	ErrNilGenerate    = errors.New("generate function cannot be nil")
	ErrNilNarrator    = errors.New("narrator cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrEmptyTaskID    = errors.New("video task ID cannot be empty")
	ErrNoFrames       = errors.New("frame analysis needs at least one frame")
	ErrInvalidPayload = errors.New("invalid task payload")
)

// FrameAnalyzer classifies a batch of frames and stores the recommendations.
type FrameAnalyzer interface {
	AnalyzeAndStore(ctx context.Context, taskID uuid.UUID, batch []domain.Frame, progress frames.ProgressFunc) (*frames.BatchResult, error)
}

// GenerateFunc produces generated content for a video task.
type GenerateFunc func(ctx context.Context, taskID uuid.UUID) error

// Narrator synthesizes and stores the narration of a video task.
type Narrator interface {
	Narrate(ctx context.Context, taskID uuid.UUID) (*domain.NarrationAsset, error)
}

// videoTaskPayload is the serialized data of tasks that only need the video task id.
type videoTaskPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// frameAnalysisPayload is the serialized data of a frame analysis task.
type frameAnalysisPayload struct {
	TaskID uuid.UUID      `json:"task_id"`
	Frames []domain.Frame `json:"frames"`
}

// baseTask holds what every video task shares.
type baseTask struct {
	id          uuid.UUID
	taskType    string
	videoTaskID uuid.UUID
	payload     []byte
	status      TaskStatus
	logger      *slog.Logger
}

func newBaseTask(id uuid.UUID, taskType string, videoTaskID uuid.UUID, payload any, logger *slog.Logger) (baseTask, error) {
	if videoTaskID == uuid.Nil {
		return baseTask{}, ErrEmptyTaskID
	}
	if logger == nil {
		return baseTask{}, ErrNilLogger
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return baseTask{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return baseTask{
		id:          id,
		taskType:    taskType,
		videoTaskID: videoTaskID,
		payload:     data,
		status:      TaskStatusPending,
		logger:      logger.With("task_type", taskType, "video_task_id", videoTaskID),
	}, nil
}

// ID returns the task's unique identifier
func (t *baseTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *baseTask) Type() string { return t.taskType }

// Payload returns the task data as a byte slice
func (t *baseTask) Payload() []byte { return t.payload }

// Status returns the current task status
func (t *baseTask) Status() TaskStatus { return t.status }

// VideoTaskID returns the video task the work is for.
func (t *baseTask) VideoTaskID() uuid.UUID { return t.videoTaskID }

// run wraps the task body with status bookkeeping and logging.
func (t *baseTask) run(ctx context.Context, body func(ctx context.Context) error) error {
	t.status = TaskStatusProcessing
	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	t.logger.InfoContext(ctx, "starting task")
	if err := body(ctx); err != nil {
		t.status = TaskStatusFailed
		return err
	}
	t.status = TaskStatusCompleted
	return nil
}

// FrameAnalysisTask classifies the frames of a video and stores the results.
type FrameAnalysisTask struct {
	baseTask
	frames   []domain.Frame
	analyzer FrameAnalyzer
}

// NewFrameAnalysisTask creates a frame analysis task. A nil id assigns a new one.
func NewFrameAnalysisTask(
	id uuid.UUID,
	videoTaskID uuid.UUID,
	batch []domain.Frame,
	analyzer FrameAnalyzer,
	logger *slog.Logger,
) (*FrameAnalysisTask, error) {
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if len(batch) == 0 {
		return nil, ErrNoFrames
	}
	base, err := newBaseTask(id, TypeFrameAnalysis, videoTaskID,
		frameAnalysisPayload{TaskID: videoTaskID, Frames: batch}, logger)
	if err != nil {
		return nil, err
	}
	return &FrameAnalysisTask{baseTask: base, frames: batch, analyzer: analyzer}, nil
}

// Execute analyzes the batch. Failures of single frames are part of the
// stored result, not task failures.
func (t *FrameAnalysisTask) Execute(ctx context.Context) error {
	return t.run(ctx, func(ctx context.Context) error {
		result, err := t.analyzer.AnalyzeAndStore(ctx, t.videoTaskID, t.frames, func(done, total int, a domain.FrameAnalysis) {
			t.logger.DebugContext(ctx, "frame analyzed",
				"done", done,
				"total", total,
				"frame_id", a.FrameID,
				"success", a.Success)
		})
		if err != nil {
			return fmt.Errorf("failed to analyze frames: %w", err)
		}
		t.logger.InfoContext(ctx, "frames analyzed",
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"skipped", result.Skipped)
		return nil
	})
}

// GenerationTask runs one generation kind for a video task.
type GenerationTask struct {
	baseTask
	generate GenerateFunc
}

// NewGenerationTask creates a generation task of taskType.
func NewGenerationTask(
	id uuid.UUID,
	taskType string,
	videoTaskID uuid.UUID,
	generate GenerateFunc,
	logger *slog.Logger,
) (*GenerationTask, error) {
	if generate == nil {
		return nil, ErrNilGenerate
	}
	base, err := newBaseTask(id, taskType, videoTaskID, videoTaskPayload{TaskID: videoTaskID}, logger)
	if err != nil {
		return nil, err
	}
	return &GenerationTask{baseTask: base, generate: generate}, nil
}

// Execute runs the generation.
func (t *GenerationTask) Execute(ctx context.Context) error {
	return t.run(ctx, func(ctx context.Context) error {
		if err := t.generate(ctx, t.videoTaskID); err != nil {
			return fmt.Errorf("failed to generate %s: %w", t.taskType, err)
		}
		return nil
	})
}

// NarrationTask synthesizes the narration of a video task's script.
type NarrationTask struct {
	baseTask
	narrator Narrator
}

// NewNarrationTask creates a narration task.
func NewNarrationTask(id uuid.UUID, videoTaskID uuid.UUID, narrator Narrator, logger *slog.Logger) (*NarrationTask, error) {
	if narrator == nil {
		return nil, ErrNilNarrator
	}
	base, err := newBaseTask(id, TypeNarration, videoTaskID, videoTaskPayload{TaskID: videoTaskID}, logger)
	if err != nil {
		return nil, err
	}
	return &NarrationTask{baseTask: base, narrator: narrator}, nil
}

// Execute synthesizes the narration.
func (t *NarrationTask) Execute(ctx context.Context) error {
	return t.run(ctx, func(ctx context.Context) error {
		asset, err := t.narrator.Narrate(ctx, t.videoTaskID)
		if err != nil {
			return fmt.Errorf("failed to narrate script: %w", err)
		}
		t.logger.InfoContext(ctx, "narration synthesized",
			"segments", asset.SegmentCount,
			"location", asset.Location)
		return nil
	})
}
