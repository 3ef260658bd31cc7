package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/events"
)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactory creates new tasks by type.
type TaskFactory interface {
	Create(taskType string, videoTaskID uuid.UUID, batch []domain.Frame) (Task, error)
}

// TaskFactoryEventHandler turns events into submitted tasks: task requests
// become the requested task, and every committed script is narrated.
type TaskFactoryEventHandler struct {
	factory TaskFactory
	runner  Submitter
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(factory TaskFactory, runner Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// Subscribe registers the handler for the events it understands.
func (h *TaskFactoryEventHandler) Subscribe(emitter *events.InMemoryEmitter) {
	emitter.Subscribe(events.TypeTaskRequested, h)
	emitter.Subscribe(events.TypeGenerationCompleted, h)
}

// HandleEvent implements events.Handler.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeTaskRequested:
		var req events.TaskRequested
		if err := event.UnmarshalPayload(&req); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		return h.submit(ctx, event, req.TaskType, req.VideoTaskID, req.Frames)

	case events.TypeGenerationCompleted:
		var done events.GenerationCompleted
		if err := event.UnmarshalPayload(&done); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if done.Kind != domain.KindScript {
			return nil
		}
		return h.submit(ctx, event, TypeNarration, done.EntityID, nil)

	default:
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}
}

func (h *TaskFactoryEventHandler) submit(
	ctx context.Context,
	event *events.Event,
	taskType string,
	videoTaskID uuid.UUID,
	batch []domain.Frame,
) error {
	task, err := h.factory.Create(taskType, videoTaskID, batch)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task",
			"error", err,
			"task_type", taskType,
			"video_task_id", videoTaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"video_task_id", videoTaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "task created and submitted successfully",
		"task_id", task.ID(),
		"task_type", taskType,
		"video_task_id", videoTaskID,
		"event_id", event.ID)
	return nil
}

var _ events.Handler = (*TaskFactoryEventHandler)(nil)
