package domain

import (
	"fmt"
	"strings"
)

// Publish-assist limits.
const (
	MaxPublishTitles     = 5
	MaxHashtags          = 10
	MaxDescriptionLength = 500
)

// PublishAssist holds suggested copy for posting the finished video.
type PublishAssist struct {
	Titles      []string `json:"titles"`
	Description string   `json:"description"`
	Hashtags    []string `json:"hashtags"`
}

// Normalize trims every field, prefixes hashtags with '#' and drops blank
// or duplicate hashtags.
func (p *PublishAssist) Normalize() {
	titles := p.Titles[:0]
	for _, t := range p.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	p.Titles = titles
	p.Description = strings.TrimSpace(p.Description)

	seen := make(map[string]struct{}, len(p.Hashtags))
	tags := make([]string, 0, len(p.Hashtags))
	for _, h := range p.Hashtags {
		h = strings.TrimLeft(strings.TrimSpace(h), "#")
		if h == "" || strings.ContainsAny(h, " \t") {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, "#"+h)
	}
	p.Hashtags = tags
}

// Validate checks the structural constraints on publish-assist content.
func (p *PublishAssist) Validate() error {
	if len(p.Titles) == 0 || len(p.Titles) > MaxPublishTitles {
		return fmt.Errorf("%w: expected between 1 and %d titles, got %d", ErrValidation, MaxPublishTitles, len(p.Titles))
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrValidation)
	}
	if len([]rune(p.Description)) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}
	if len(p.Hashtags) > MaxHashtags {
		return fmt.Errorf("%w: at most %d hashtags allowed, got %d", ErrValidation, MaxHashtags, len(p.Hashtags))
	}
	return nil
}

// DefaultPublishAssist is the fixed copy used when model output cannot be
// parsed or validated.
func DefaultPublishAssist() PublishAssist {
	return PublishAssist{
		Titles:      []string{"Fresh from our kitchen", "Your new neighbourhood favourite"},
		Description: "Stop by and see what everyone is talking about.",
		Hashtags:    []string{"#shoplocal", "#foodie", "#smallbusiness"},
	}
}
