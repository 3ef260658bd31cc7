package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/platform/logger"
)

// TaskIDParam is the path parameter holding the video task ID.
const TaskIDParam = "taskID"

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}

	return id, nil
}

// handleTaskID extracts the task ID from the path and writes an error
// response when it is missing or malformed.
func handleTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	taskID, err := getPathUUID(r, TaskIDParam)
	if err != nil {
		log := logger.FromContextOrDefault(r.Context(), slog.Default())
		log.Warn("invalid task id", slog.String("value", chi.URLParam(r, TaskIDParam)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return taskID, true
}
