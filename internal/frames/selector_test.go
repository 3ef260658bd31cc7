package frames

import (
	"testing"

	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSelector_Select(t *testing.T) {
	analyses := []domain.FrameAnalysis{
		{FrameID: 1, Category: domain.CategoryFood, QualityScore: 80, Success: true},
		{FrameID: 2, Category: domain.CategoryFood, QualityScore: 60, Success: true},
		{FrameID: 3, Category: domain.CategoryFood, QualityScore: 90, Success: true},
		{FrameID: 4, Category: domain.CategoryPerson, QualityScore: 70, Success: true},
		{FrameID: 5, Success: false},
	}

	got := Selector{TopN: 2}.Select(analyses)

	assert.Equal(t, []int64{3, 1}, got[domain.CategoryFood])
	assert.Equal(t, []int64{4}, got[domain.CategoryPerson])
	assert.Empty(t, got[domain.CategoryEnvironment])
	assert.Empty(t, got[domain.CategoryOther])
	assert.Len(t, got, len(domain.Categories))
	assert.False(t, got.Contains(5))
}

func TestSelector_TiesKeepInputOrder(t *testing.T) {
	analyses := []domain.FrameAnalysis{
		{FrameID: 7, Category: domain.CategoryEnvironment, QualityScore: 50, Success: true},
		{FrameID: 2, Category: domain.CategoryEnvironment, QualityScore: 50, Success: true},
		{FrameID: 9, Category: domain.CategoryEnvironment, QualityScore: 50, Success: true},
	}

	got := Selector{TopN: 2}.Select(analyses)
	assert.Equal(t, []int64{7, 2}, got[domain.CategoryEnvironment])
}

func TestSelector_DefaultTopN(t *testing.T) {
	analyses := []domain.FrameAnalysis{
		{FrameID: 1, Category: domain.CategoryOther, QualityScore: 10, Success: true},
		{FrameID: 2, Category: domain.CategoryOther, QualityScore: 20, Success: true},
		{FrameID: 3, Category: domain.CategoryOther, QualityScore: 30, Success: true},
	}

	got := Selector{}.Select(analyses)
	assert.Equal(t, []int64{3, 2}, got[domain.CategoryOther])
}

func TestSelector_NoSuccessfulFrames(t *testing.T) {
	got := Selector{TopN: 3}.Select([]domain.FrameAnalysis{
		{FrameID: 1, Skipped: true},
		{FrameID: 2},
	})
	for _, c := range domain.Categories {
		assert.NotNil(t, got[c], "category %s", c)
		assert.Empty(t, got[c])
	}
}
