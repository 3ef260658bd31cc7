package domain

import (
	"time"

	"github.com/google/uuid"
)

// NarrationAsset records where the synthesized narration of a task is stored.
type NarrationAsset struct {
	TaskID          uuid.UUID `json:"task_id"`
	Location        string    `json:"location"`
	AudioEncoding   string    `json:"audio_encoding"`
	SegmentCount    int       `json:"segment_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
