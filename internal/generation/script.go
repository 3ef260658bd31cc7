package generation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// DefaultLanguage is used when a video task does not name one.
const DefaultLanguage = "English"

type shot struct {
	FrameID      int64
	Category     domain.FrameCategory
	QualityScore int
	Description  string
}

type scriptPromptData struct {
	ShopName         string
	ShopType         string
	Description      string
	Language         string
	Shots            []shot
	MaxTitleLength   int
	MaxScenes        int
	MaxCaptionLength int
	MaxSceneSeconds  int
}

// ScriptSpec returns the Spec for video scripts. The prompt is built from
// the video task and its recommended frames.
func ScriptSpec(settings Settings, videos store.VideoTaskReader, frames store.FrameStore) Spec[domain.Script] {
	return Spec[domain.Script]{
		Kind:     domain.KindScript,
		Settings: settings,
		Prompt: func(ctx context.Context, entityID uuid.UUID) ([]provider.Message, error) {
			return scriptPrompt(ctx, entityID, videos, frames)
		},
		Validate: func(s *domain.Script) error { return s.Validate() },
		Default:  domain.DefaultScript,
	}
}

func scriptPrompt(ctx context.Context, taskID uuid.UUID, videos store.VideoTaskReader, frames store.FrameStore) ([]provider.Message, error) {
	video, err := videos.GetVideoTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	analyses, err := frames.ListAnalyses(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list frame analyses: %w", err)
	}
	recommended, err := frames.ListRecommended(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list recommended frames: %w", err)
	}

	data := scriptPromptData{
		ShopName:         video.ShopName,
		ShopType:         video.ShopType,
		Description:      video.Description,
		Language:         languageOrDefault(video.Language),
		Shots:            recommendedShots(analyses, recommended),
		MaxTitleLength:   domain.MaxScriptTitleLength,
		MaxScenes:        domain.MaxScriptScenes,
		MaxCaptionLength: domain.MaxCaptionLength,
		MaxSceneSeconds:  domain.MaxSceneDurationSecs,
	}
	text, err := renderPrompt("script.tmpl", data)
	if err != nil {
		return nil, err
	}
	return []provider.Message{
		{Role: provider.RoleSystem, Content: systemPrompt},
		{Role: provider.RoleUser, Content: text},
	}, nil
}

// recommendedShots lists the recommended analyses in category order, best first.
func recommendedShots(analyses []domain.FrameAnalysis, recommended domain.RecommendationSet) []shot {
	byID := make(map[int64]domain.FrameAnalysis, len(analyses))
	for _, a := range analyses {
		byID[a.FrameID] = a
	}

	var shots []shot
	for _, category := range domain.Categories {
		for _, id := range recommended[category] {
			a, ok := byID[id]
			if !ok {
				continue
			}
			shots = append(shots, shot{
				FrameID:      a.FrameID,
				Category:     a.Category,
				QualityScore: a.QualityScore,
				Description:  a.Description,
			})
		}
	}
	if len(shots) > 0 {
		return shots
	}

	// No recommendations yet: fall back to the best successful analyses.
	for _, a := range analyses {
		if a.Success {
			shots = append(shots, shot{FrameID: a.FrameID, Category: a.Category, QualityScore: a.QualityScore, Description: a.Description})
		}
	}
	sort.SliceStable(shots, func(i, j int) bool { return shots[i].QualityScore > shots[j].QualityScore })
	if len(shots) > domain.MaxScriptScenes {
		shots = shots[:domain.MaxScriptScenes]
	}
	return shots
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
