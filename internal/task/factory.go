package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// Factories builds every task type from its collaborators. It creates new
// tasks for submission and rebuilds persisted ones through a Registry.
type Factories struct {
	analyzer      FrameAnalyzer
	script        GenerateFunc
	publishAssist GenerateFunc
	narrator      Narrator
	logger        *slog.Logger
}

// NewFactories creates the task factories.
func NewFactories(
	analyzer FrameAnalyzer,
	script GenerateFunc,
	publishAssist GenerateFunc,
	narrator Narrator,
	logger *slog.Logger,
) (*Factories, error) {
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if script == nil || publishAssist == nil {
		return nil, ErrNilGenerate
	}
	if narrator == nil {
		return nil, ErrNilNarrator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	return &Factories{
		analyzer:      analyzer,
		script:        script,
		publishAssist: publishAssist,
		narrator:      narrator,
		logger:        logger,
	}, nil
}

// FrameAnalysis creates a new frame analysis task.
func (f *Factories) FrameAnalysis(videoTaskID uuid.UUID, batch []domain.Frame) (Task, error) {
	return NewFrameAnalysisTask(uuid.Nil, videoTaskID, batch, f.analyzer, f.logger)
}

// Generation creates a new script or publish-assist task.
func (f *Factories) Generation(taskType string, videoTaskID uuid.UUID) (Task, error) {
	switch taskType {
	case TypeScriptGeneration:
		return NewGenerationTask(uuid.Nil, taskType, videoTaskID, f.script, f.logger)
	case TypePublishAssist:
		return NewGenerationTask(uuid.Nil, taskType, videoTaskID, f.publishAssist, f.logger)
	default:
		return nil, fmt.Errorf("%w: %q is not a generation task", ErrUnknownTaskType, taskType)
	}
}

// Narration creates a new narration task.
func (f *Factories) Narration(videoTaskID uuid.UUID) (Task, error) {
	return NewNarrationTask(uuid.Nil, videoTaskID, f.narrator, f.logger)
}

// Create builds a new task of any type. Frames are only used by frame analysis.
func (f *Factories) Create(taskType string, videoTaskID uuid.UUID, batch []domain.Frame) (Task, error) {
	switch taskType {
	case TypeFrameAnalysis:
		return f.FrameAnalysis(videoTaskID, batch)
	case TypeScriptGeneration, TypePublishAssist:
		return f.Generation(taskType, videoTaskID)
	case TypeNarration:
		return f.Narration(videoTaskID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
}

// Register installs a rebuild factory for every task type.
func (f *Factories) Register(r *Registry) {
	r.Register(TypeFrameAnalysis, func(id uuid.UUID, payload []byte) (Task, error) {
		var p frameAnalysisPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return NewFrameAnalysisTask(id, p.TaskID, p.Frames, f.analyzer, f.logger)
	})

	for _, taskType := range []string{TypeScriptGeneration, TypePublishAssist} {
		generate := f.script
		if taskType == TypePublishAssist {
			generate = f.publishAssist
		}
		r.Register(taskType, func(id uuid.UUID, payload []byte) (Task, error) {
			var p videoTaskPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
			return NewGenerationTask(id, taskType, p.TaskID, generate, f.logger)
		})
	}

	r.Register(TypeNarration, func(id uuid.UUID, payload []byte) (Task, error) {
		var p videoTaskPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return NewNarrationTask(id, p.TaskID, f.narrator, f.logger)
	})
}
