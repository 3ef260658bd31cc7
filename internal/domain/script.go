package domain

import (
	"fmt"
	"strings"
)

// Script limits.
const (
	MaxScriptScenes      = 8
	MaxSceneDurationSecs = 15
	MaxScriptTitleLength = 60
	MaxCaptionLength     = 40
)

// Scene is one shot of the marketing video.
type Scene struct {
	FrameID         int64  `json:"frame_id,omitempty"`
	Narration       string `json:"narration"`
	Caption         string `json:"caption"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Script is the structured video script produced by the chat model.
type Script struct {
	Title        string  `json:"title"`
	Hook         string  `json:"hook"`
	Scenes       []Scene `json:"scenes"`
	CallToAction string  `json:"call_to_action"`
}

// Validate checks the structural constraints on a generated script.
func (s *Script) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: script title cannot be empty", ErrValidation)
	}
	if len([]rune(s.Title)) > MaxScriptTitleLength {
		return fmt.Errorf("%w: script title exceeds %d characters", ErrValidation, MaxScriptTitleLength)
	}
	if len(s.Scenes) == 0 || len(s.Scenes) > MaxScriptScenes {
		return fmt.Errorf("%w: script must have between 1 and %d scenes, got %d", ErrValidation, MaxScriptScenes, len(s.Scenes))
	}
	for i, scene := range s.Scenes {
		if strings.TrimSpace(scene.Narration) == "" {
			return fmt.Errorf("%w: scene %d has no narration", ErrValidation, i+1)
		}
		if len([]rune(scene.Caption)) > MaxCaptionLength {
			return fmt.Errorf("%w: scene %d caption exceeds %d characters", ErrValidation, i+1, MaxCaptionLength)
		}
		if scene.DurationSeconds < 1 || scene.DurationSeconds > MaxSceneDurationSecs {
			return fmt.Errorf("%w: scene %d duration must be between 1 and %d seconds", ErrValidation, i+1, MaxSceneDurationSecs)
		}
	}
	return nil
}

// NarrationText joins the hook, scene narrations and call to action in
// speaking order.
func (s *Script) NarrationText() string {
	parts := make([]string, 0, len(s.Scenes)+2)
	if h := strings.TrimSpace(s.Hook); h != "" {
		parts = append(parts, h)
	}
	for _, scene := range s.Scenes {
		parts = append(parts, strings.TrimSpace(scene.Narration))
	}
	if c := strings.TrimSpace(s.CallToAction); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " ")
}

// DefaultScript is the fixed script used when model output cannot be parsed
// or validated.
func DefaultScript() Script {
	return Script{
		Title: "Come Taste the Difference",
		Hook:  "Looking for your next favourite spot?",
		Scenes: []Scene{
			{Narration: "Everything here is made fresh, every single day.", Caption: "Made fresh daily", DurationSeconds: 5},
			{Narration: "Friendly faces and a space you will want to come back to.", Caption: "Come as you are", DurationSeconds: 5},
		},
		CallToAction: "Visit us today.",
	}
}
