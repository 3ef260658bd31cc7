package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/api/shared"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/events"
	"github.com/phrazzld/reelgen-api/internal/frames"
	"github.com/phrazzld/reelgen-api/internal/platform/logger"
	"github.com/phrazzld/reelgen-api/internal/task"
)

// FrameService analyzes frame batches and reads back their recommendations.
type FrameService interface {
	AnalyzeAndStore(ctx context.Context, taskID uuid.UUID, batch []domain.Frame, progress frames.ProgressFunc) (*frames.BatchResult, error)
	Recommendations(ctx context.Context, taskID uuid.UUID) (*frames.BatchResult, error)
}

// FramesHandler serves frame analysis for a video task.
type FramesHandler struct {
	service FrameService
	emitter events.Emitter
	logger  *slog.Logger
}

// NewFramesHandler creates a FramesHandler. emitter may be nil, in which case
// every batch is analyzed inline.
func NewFramesHandler(service FrameService, emitter events.Emitter, logger *slog.Logger) *FramesHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FramesHandler{
		service: service,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "frames_handler")),
	}
}

// Analyze handles POST /api/tasks/{taskID}/frames/analyze.
func (h *FramesHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	taskID, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	var req AnalyzeFramesRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, CodeInvalidRequest, SanitizeValidationError(err), err)
		return
	}
	batch := req.toDomain()

	if req.Async && h.emitter != nil {
		requestTask(w, r, h.emitter, events.TaskRequested{
			TaskType:    task.TypeFrameAnalysis,
			VideoTaskID: taskID,
			Frames:      batch,
		})
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	result, err := h.service.AnalyzeAndStore(r.Context(), taskID, batch, func(done, total int, a domain.FrameAnalysis) {
		log.Debug("frame analysis progress",
			slog.Int("done", done),
			slog.Int("total", total),
			slog.Int64("frame_id", a.FrameID))
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyze frames")
		return
	}

	log.Info("frames analyzed",
		slog.String("task_id", taskID.String()),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Recommendations handles GET /api/tasks/{taskID}/frames/recommendations.
func (h *FramesHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	taskID, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Recommendations(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load recommendations")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
