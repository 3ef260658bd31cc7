package domain

import (
	"errors"
	"strings"
	"testing"
)

func validScript() Script {
	return Script{
		Title: "Noodles Worth the Queue",
		Hook:  "Ever seen noodles pulled this fast?",
		Scenes: []Scene{
			{FrameID: 3, Narration: "Hand-pulled every morning.", Caption: "Hand-pulled", DurationSeconds: 4},
			{FrameID: 4, Narration: "Our chef has done this for twenty years.", Caption: "Chef Li", DurationSeconds: 5},
		},
		CallToAction: "Find us on Market Street.",
	}
}

func TestScriptValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Script)
		wantErr bool
	}{
		{"valid", func(s *Script) {}, false},
		{"blank title", func(s *Script) { s.Title = "  " }, true},
		{"long title", func(s *Script) { s.Title = strings.Repeat("t", MaxScriptTitleLength+1) }, true},
		{"no scenes", func(s *Script) { s.Scenes = nil }, true},
		{"too many scenes", func(s *Script) {
			for len(s.Scenes) <= MaxScriptScenes {
				s.Scenes = append(s.Scenes, s.Scenes[0])
			}
		}, true},
		{"scene without narration", func(s *Script) { s.Scenes[1].Narration = "" }, true},
		{"zero duration", func(s *Script) { s.Scenes[0].DurationSeconds = 0 }, true},
		{"long caption", func(s *Script) { s.Scenes[0].Caption = strings.Repeat("c", MaxCaptionLength+1) }, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := validScript()
			tc.mutate(&s)
			err := s.Validate()
			if tc.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestScriptNarrationText(t *testing.T) {
	t.Parallel()

	s := validScript()
	want := "Ever seen noodles pulled this fast? Hand-pulled every morning. Our chef has done this for twenty years. Find us on Market Street."
	if got := s.NarrationText(); got != want {
		t.Errorf("NarrationText() = %q, want %q", got, want)
	}
}

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	script := DefaultScript()
	if err := script.Validate(); err != nil {
		t.Errorf("DefaultScript must validate: %v", err)
	}
	assist := DefaultPublishAssist()
	if err := assist.Validate(); err != nil {
		t.Errorf("DefaultPublishAssist must validate: %v", err)
	}
}

func TestPublishAssistNormalize(t *testing.T) {
	t.Parallel()

	p := PublishAssist{
		Titles:      []string{" Best noodles in town ", ""},
		Description: " Come hungry. ",
		Hashtags:    []string{"noodles", "#Noodles", "##foodie", "two words", " "},
	}
	p.Normalize()

	if len(p.Titles) != 1 || p.Titles[0] != "Best noodles in town" {
		t.Errorf("unexpected titles %v", p.Titles)
	}
	if p.Description != "Come hungry." {
		t.Errorf("unexpected description %q", p.Description)
	}
	if strings.Join(p.Hashtags, ",") != "#noodles,#foodie" {
		t.Errorf("unexpected hashtags %v", p.Hashtags)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Expected normalized content to validate, got %v", err)
	}

	empty := PublishAssist{Description: "x"}
	if err := empty.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for missing titles, got %v", err)
	}
}
