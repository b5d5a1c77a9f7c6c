// Package analysis extracts structure and sentiment from chat messages and
// assembles the ProcessedMessage consumed by the moderation policy.
package analysis

import (
	"context"

	"github.com/edgard/lovebot/internal/domain/model"
)

// Analyzer produces text analysis and sentiment for message content.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	AnalyzeText(ctx context.Context, content string) model.AnalysisResult
	AnalyzeSentiment(ctx context.Context, content string) model.SentimentResult
}

// Thresholds split the sentiment score range into negative, neutral and positive.
// NegativeThreshold must be <= 0 and PositiveThreshold >= 0 so a zero score is neutral.
type Thresholds struct {
	Positive float64
	Negative float64
}

// DefaultThresholds are used when none are configured.
var DefaultThresholds = Thresholds{Positive: 0.1, Negative: -0.1}

// Classify builds a SentimentResult whose flags are consistent with score.
// The score is clamped to [-1, 1].
func Classify(score, magnitude float64, th Thresholds) model.SentimentResult {
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	if magnitude < 0 {
		magnitude = -magnitude
	}

	res := model.SentimentResult{Score: score, Magnitude: magnitude}
	switch {
	case score < th.Negative:
		res.IsNegative = true
	case score > th.Positive:
		res.IsPositive = true
	default:
		res.IsNeutral = true
	}
	return res
}
