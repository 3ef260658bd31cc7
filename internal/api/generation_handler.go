package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/api/shared"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/events"
	"github.com/phrazzld/reelgen-api/internal/generation"
	"github.com/phrazzld/reelgen-api/internal/platform/logger"
	"github.com/phrazzld/reelgen-api/internal/task"
)

// GenerationService is the part of generation.Orchestrator the handlers use.
type GenerationService[T any] interface {
	Kind() domain.GenerationKind
	GetOrGenerate(ctx context.Context, entityID uuid.UUID) (*generation.Result[T], error)
	Regenerate(ctx context.Context, entityID uuid.UUID) (*generation.Result[T], error)
	RemainingAttempts(ctx context.Context, entityID uuid.UUID) (int, error)
}

// GenerationHandler serves one kind of generated content for a video task.
type GenerationHandler[T any] struct {
	service GenerationService[T]
	emitter events.Emitter
	logger  *slog.Logger
}

// NewGenerationHandler creates a handler over service. When emitter is set,
// requests with ?async=true are queued as background tasks.
func NewGenerationHandler[T any](service GenerationService[T], emitter events.Emitter, logger *slog.Logger) *GenerationHandler[T] {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler[T]{
		service: service,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "generation_handler"), slog.String("kind", string(service.Kind()))),
	}
}

// Generate handles POST /api/tasks/{taskID}/<kind>.
// It returns the current attempt, generating attempt 0 on first use.
func (h *GenerationHandler[T]) Generate(w http.ResponseWriter, r *http.Request) {
	taskID, ok := handleTaskID(w, r)
	if !ok {
		return
	}
	if h.wantsAsync(r) {
		h.enqueue(w, r, taskID)
		return
	}

	result, err := h.service.GetOrGenerate(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate content")
		return
	}
	h.logFor(r).Debug("content served",
		slog.String("task_id", taskID.String()),
		slog.String("source", string(result.Source)))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Regenerate handles POST /api/tasks/{taskID}/<kind>/regenerate.
func (h *GenerationHandler[T]) Regenerate(w http.ResponseWriter, r *http.Request) {
	taskID, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Regenerate(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to regenerate content")
		return
	}
	h.logFor(r).Info("content regenerated",
		slog.String("task_id", taskID.String()),
		slog.Int("attempt_index", result.AttemptIndex),
		slog.Int("remaining_attempts", result.RemainingAttempts))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Attempts handles GET /api/tasks/{taskID}/<kind>/attempts.
func (h *GenerationHandler[T]) Attempts(w http.ResponseWriter, r *http.Request) {
	taskID, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	remaining, err := h.service.RemainingAttempts(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load attempts")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AttemptsResponse{
		TaskID:            taskID,
		Kind:              h.service.Kind(),
		RemainingAttempts: remaining,
	})
}

func (h *GenerationHandler[T]) wantsAsync(r *http.Request) bool {
	if h.emitter == nil {
		return false
	}
	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	return async
}

func (h *GenerationHandler[T]) enqueue(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	taskType := task.TypeScriptGeneration
	if h.service.Kind() == domain.KindPublishAssist {
		taskType = task.TypePublishAssist
	}
	requestTask(w, r, h.emitter, events.TaskRequested{TaskType: taskType, VideoTaskID: taskID})
}

func (h *GenerationHandler[T]) logFor(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// requestTask emits a task request and answers 202.
func requestTask(w http.ResponseWriter, r *http.Request, emitter events.Emitter, req events.TaskRequested) {
	event, err := events.New(events.TypeTaskRequested, req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to queue task")
		return
	}
	if err := emitter.Emit(r.Context(), event); err != nil {
		HandleAPIError(w, r, err, "Failed to queue task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, AcceptedResponse{
		TaskID:    req.VideoTaskID,
		RequestID: event.ID,
		Status:    "accepted",
	})
}
