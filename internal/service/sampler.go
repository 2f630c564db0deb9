package service

import (
	"math/rand"

	"realms-server/internal/models"
)

// ImageProbability maps the distance since the last illustrated segment
// to the chance of illustrating the next one. An empty history is the
// opening scene and is always illustrated; the probability then climbs
// with the gap until it is certain at six scenes without an image.
func ImageProbability(history []models.StorySegment) float64 {
	if len(history) == 0 {
		return 1.0
	}

	gap := trailingImageGap(history)
	switch gap {
	case 0:
		return 0.05
	case 1:
		return 0.20
	case 2:
		return 0.35
	case 3:
		return 0.50
	case 4:
		return 0.80
	case 5:
		return 0.90
	default:
		return 1.0
	}
}

// trailingImageGap counts segments since the last one with an image.
// A history with no images at all counts every segment.
func trailingImageGap(history []models.StorySegment) int {
	gap := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].HasImage() {
			break
		}
		gap++
	}
	return gap
}

// ImageSampler decides whether a turn gets an illustration. The roll is
// injectable so tests can pin the outcome.
type ImageSampler struct {
	roll func() float64
}

func NewImageSampler() *ImageSampler {
	return &ImageSampler{roll: rand.Float64}
}

// NewImageSamplerWithRoll is used by tests to fix the random roll.
func NewImageSamplerWithRoll(roll func() float64) *ImageSampler {
	return &ImageSampler{roll: roll}
}

// ShouldIllustrate samples against the history-derived probability.
func (s *ImageSampler) ShouldIllustrate(history []models.StorySegment) bool {
	return s.roll() < ImageProbability(history)
}
