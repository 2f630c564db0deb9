package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"realms-server/internal/models"
)

// historyWithGap builds a history whose trailing run without an image
// has the given length. gap == len(history) means no image at all.
func historyWithGap(total, gap int) []models.StorySegment {
	history := make([]models.StorySegment, total)
	for i := range history {
		history[i] = models.StorySegment{ID: "seg", Text: "scene"}
	}
	if gap < total {
		url := "data:image/png;base64,xxx"
		history[total-1-gap].ImageURL = &url
	}
	return history
}

func TestImageProbability_EmptyHistoryAlwaysIllustrates(t *testing.T) {
	assert.Equal(t, 1.0, ImageProbability(nil))
	assert.Equal(t, 1.0, ImageProbability([]models.StorySegment{}))
}

func TestImageProbability_GapTable(t *testing.T) {
	cases := []struct {
		gap      int
		expected float64
	}{
		{0, 0.05},
		{1, 0.20},
		{2, 0.35},
		{3, 0.50},
		{4, 0.80},
		{5, 0.90},
		{6, 1.0},
		{9, 1.0},
	}
	for _, tc := range cases {
		history := historyWithGap(10, tc.gap)
		assert.Equal(t, tc.expected, ImageProbability(history), "gap %d", tc.gap)
	}
}

func TestImageProbability_NoImagesCountsWholeHistory(t *testing.T) {
	// Six scenes, none illustrated: certainty.
	history := historyWithGap(6, 6)
	assert.Equal(t, 1.0, ImageProbability(history))

	// Three scenes without an image map to the gap-3 step.
	history = historyWithGap(3, 3)
	assert.Equal(t, 0.50, ImageProbability(history))
}

func TestImageProbability_MonotonicInGap(t *testing.T) {
	prev := 0.0
	for gap := 0; gap <= 8; gap++ {
		p := ImageProbability(historyWithGap(12, gap))
		assert.GreaterOrEqual(t, p, prev, "probability must not decrease at gap %d", gap)
		prev = p
	}
}

func TestTrailingImageGap(t *testing.T) {
	assert.Equal(t, 0, trailingImageGap(historyWithGap(5, 0)))
	assert.Equal(t, 3, trailingImageGap(historyWithGap(5, 3)))
	assert.Equal(t, 5, trailingImageGap(historyWithGap(5, 5)))
}

func TestImageSampler_ShouldIllustrate(t *testing.T) {
	history := historyWithGap(10, 3) // probability 0.50

	always := NewImageSamplerWithRoll(func() float64 { return 0.49 })
	assert.True(t, always.ShouldIllustrate(history))

	never := NewImageSamplerWithRoll(func() float64 { return 0.50 })
	assert.False(t, never.ShouldIllustrate(history))
}
