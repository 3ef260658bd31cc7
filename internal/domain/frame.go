package domain

import (
	"fmt"
	"strings"
)

// FrameCategory classifies what a video frame shows.
type FrameCategory string

// Frame categories, in the order they are reported.
const (
	CategoryFood        FrameCategory = "food"
	CategoryPerson      FrameCategory = "person"
	CategoryEnvironment FrameCategory = "environment"
	CategoryOther       FrameCategory = "other"
)

// Categories lists every frame category.
var Categories = []FrameCategory{CategoryFood, CategoryPerson, CategoryEnvironment, CategoryOther}

// MaxFrameTags caps the tags kept per analysis.
const MaxFrameTags = 5

// ParseFrameCategory normalizes a category reported by a vision model.
// Unknown values map to CategoryOther.
func ParseFrameCategory(s string) FrameCategory {
	switch c := FrameCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryFood, CategoryPerson, CategoryEnvironment:
		return c
	default:
		return CategoryOther
	}
}

// Valid reports whether c is one of the known categories.
func (c FrameCategory) Valid() bool {
	switch c {
	case CategoryFood, CategoryPerson, CategoryEnvironment, CategoryOther:
		return true
	}
	return false
}

// Frame is a still extracted from an uploaded shop video.
type Frame struct {
	ID       int64  `json:"frame_id"`
	ImageURL string `json:"image_url"`
}

// Validate checks the frame can be sent for analysis.
func (f Frame) Validate() error {
	if f.ID <= 0 {
		return fmt.Errorf("%w: frame id must be positive", ErrValidation)
	}
	if strings.TrimSpace(f.ImageURL) == "" {
		return fmt.Errorf("%w: frame %d has no image url", ErrValidation, f.ID)
	}
	return nil
}

// FrameAnalysis is the classification of one frame. A failed analysis keeps
// its zero category and score and carries ErrorMessage instead.
type FrameAnalysis struct {
	FrameID      int64         `json:"frame_id"`
	Category     FrameCategory `json:"category,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	QualityScore int           `json:"quality_score"`
	Description  string        `json:"description,omitempty"`
	Success      bool          `json:"success"`
	Skipped      bool          `json:"skipped,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// NewFrameAnalysis builds a successful analysis from model output. The
// category is normalized, tags are trimmed and de-duplicated and capped at
// MaxFrameTags. A score outside [0,100] is a validation error.
func NewFrameAnalysis(frameID int64, category string, tags []string, qualityScore int, description string) (FrameAnalysis, error) {
	if qualityScore < 0 || qualityScore > 100 {
		return FrameAnalysis{}, fmt.Errorf("%w: quality score %d out of range [0,100]", ErrValidation, qualityScore)
	}
	return FrameAnalysis{
		FrameID:      frameID,
		Category:     ParseFrameCategory(category),
		Tags:         normalizeTags(tags),
		QualityScore: qualityScore,
		Description:  strings.TrimSpace(description),
		Success:      true,
	}, nil
}

// FailedFrameAnalysis records a frame whose analysis did not produce a result.
func FailedFrameAnalysis(frameID int64, message string) FrameAnalysis {
	return FrameAnalysis{FrameID: frameID, ErrorMessage: message}
}

// SkippedFrameAnalysis records a frame the provider refused to process.
func SkippedFrameAnalysis(frameID int64, message string) FrameAnalysis {
	return FrameAnalysis{FrameID: frameID, Skipped: true, ErrorMessage: message}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, MaxFrameTags)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxFrameTags {
			break
		}
	}
	return out
}

// RecommendationSet maps every category to its recommended frame ids, best first.
type RecommendationSet map[FrameCategory][]int64

// Contains reports whether frameID is recommended in any category.
func (r RecommendationSet) Contains(frameID int64) bool {
	for _, ids := range r {
		for _, id := range ids {
			if id == frameID {
				return true
			}
		}
	}
	return false
}
