package domain

import (
	"math"
	"time"
)

// Engagement score weights. Recency decays to zero over 30 days; the
// volume component saturates at 50 messages.
const (
	engagementRateWeight      = 0.4
	engagementVolumeWeight    = 0.3
	engagementRecencyWeight   = 0.2
	engagementSentimentWeight = 0.1

	engagementVolumeSaturation = 50.0
	engagementRecencyHorizon   = 30.0
)

// EngagementScore computes the composite engagement score for a
// conversation as of now. The result is clamped to [0,1] and rounded to
// two decimals.
func EngagementScore(record *ConversationRecord, now time.Time) float64 {
	score := record.ResponseRate * engagementRateWeight

	volume := float64(record.TotalMessages) / engagementVolumeSaturation
	if volume > 1 {
		volume = 1
	}
	score += volume * engagementVolumeWeight

	if record.LastInteraction != nil {
		days := now.Sub(*record.LastInteraction).Hours() / 24
		recency := 1 - days/engagementRecencyHorizon
		if recency < 0 {
			recency = 0
		}
		score += recency * engagementRecencyWeight
	}

	if record.SentimentScore > 0 {
		score += record.SentimentScore * engagementSentimentWeight
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}

// BlendAverage folds a new observation into a rolling two-point blend:
// the first observation is taken as-is, later ones average with the prior
// value, so recent observations carry half the weight.
func BlendAverage(prior *float64, value float64) float64 {
	if prior == nil {
		return value
	}
	return (*prior + value) / 2
}
