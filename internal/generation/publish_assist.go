package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// ErrScriptRequired is returned when publish-assist copy is requested for a
// task that has no script yet.
var ErrScriptRequired = fmt.Errorf("%w: a script must be generated first", domain.ErrValidation)

type publishAssistPromptData struct {
	Title                string
	Narration            string
	Language             string
	MaxTitles            int
	MaxDescriptionLength int
	MaxHashtags          int
}

// PublishAssistSpec returns the Spec for publish-assist copy. The prompt is
// built from the current script of the task.
func PublishAssistSpec(settings Settings, videos store.VideoTaskReader, generations store.GenerationStore) Spec[domain.PublishAssist] {
	return Spec[domain.PublishAssist]{
		Kind:     domain.KindPublishAssist,
		Settings: settings,
		Prompt: func(ctx context.Context, entityID uuid.UUID) ([]provider.Message, error) {
			return publishAssistPrompt(ctx, entityID, videos, generations)
		},
		Validate: func(p *domain.PublishAssist) error {
			p.Normalize()
			return p.Validate()
		},
		Default: domain.DefaultPublishAssist,
	}
}

func publishAssistPrompt(ctx context.Context, taskID uuid.UUID, videos store.VideoTaskReader, generations store.GenerationStore) ([]provider.Message, error) {
	video, err := videos.GetVideoTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	attempt, err := generations.Get(ctx, taskID, domain.KindScript)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrScriptRequired
		}
		return nil, fmt.Errorf("load script: %w", err)
	}
	var script domain.Script
	if err := json.Unmarshal(attempt.Content, &script); err != nil {
		return nil, fmt.Errorf("decode stored script: %w", err)
	}

	text, err := renderPrompt("publish_assist.tmpl", publishAssistPromptData{
		Title:                script.Title,
		Narration:            script.NarrationText(),
		Language:             languageOrDefault(video.Language),
		MaxTitles:            domain.MaxPublishTitles,
		MaxDescriptionLength: domain.MaxDescriptionLength,
		MaxHashtags:          domain.MaxHashtags,
	})
	if err != nil {
		return nil, err
	}
	return []provider.Message{
		{Role: provider.RoleSystem, Content: systemPrompt},
		{Role: provider.RoleUser, Content: text},
	}, nil
}
