package frames

import (
	"sort"

	"github.com/phrazzld/reelgen-api/internal/domain"
)

// DefaultTopN is the number of frames recommended per category.
const DefaultTopN = 2

// Selector picks the recommended frames of a batch.
type Selector struct {
	TopN int
}

// Select groups the successful analyses by category and keeps the TopN best
// of each, ordered by quality score descending. Ties keep input order. Every
// category is present in the result, possibly with an empty list.
func (s Selector) Select(analyses []domain.FrameAnalysis) domain.RecommendationSet {
	topN := s.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	grouped := make(map[domain.FrameCategory][]domain.FrameAnalysis, len(domain.Categories))
	for _, a := range analyses {
		if !a.Success {
			continue
		}
		grouped[a.Category] = append(grouped[a.Category], a)
	}

	set := make(domain.RecommendationSet, len(domain.Categories))
	for _, category := range domain.Categories {
		group := grouped[category]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].QualityScore > group[j].QualityScore
		})
		if len(group) > topN {
			group = group[:topN]
		}
		ids := make([]int64, 0, len(group))
		for _, a := range group {
			ids = append(ids, a.FrameID)
		}
		set[category] = ids
	}
	return set
}
