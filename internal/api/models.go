package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// FrameRequest is one frame submitted for analysis.
type FrameRequest struct {
	FrameID  int64  `json:"frame_id" validate:"gt=0"`
	ImageURL string `json:"image_url" validate:"required,url"`
}

// AnalyzeFramesRequest is the body of POST /api/tasks/{taskID}/frames/analyze.
type AnalyzeFramesRequest struct {
	Frames []FrameRequest `json:"frames" validate:"required,min=1,dive"`
	// Async queues the batch as a background task instead of waiting for it.
	Async bool `json:"async,omitempty"`
}

func (r AnalyzeFramesRequest) toDomain() []domain.Frame {
	frames := make([]domain.Frame, len(r.Frames))
	for i, f := range r.Frames {
		frames[i] = domain.Frame{ID: f.FrameID, ImageURL: f.ImageURL}
	}
	return frames
}

// AttemptsResponse reports how many regenerations are left.
type AttemptsResponse struct {
	TaskID            uuid.UUID             `json:"task_id"`
	Kind              domain.GenerationKind `json:"kind"`
	RemainingAttempts int                   `json:"remaining_attempts"`
}

// AcceptedResponse acknowledges work queued in the background.
type AcceptedResponse struct {
	TaskID    uuid.UUID `json:"task_id"`
	RequestID uuid.UUID `json:"request_id"`
	Status    string    `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
