package moderation

import "github.com/edgard/lovebot/internal/domain/model"

// Policy decides whether a processed message warrants an automated reply.
type Policy interface {
	ShouldRespond(msg model.ProcessedMessage) bool
}

// ThresholdPolicy intervenes when sentiment falls strictly below the threshold
// and the conversation is not paused.
type ThresholdPolicy struct {
	threshold float64
	registry  *Registry
}

// NewThresholdPolicy creates a ThresholdPolicy. registry may be nil.
func NewThresholdPolicy(threshold float64, registry *Registry) *ThresholdPolicy {
	return &ThresholdPolicy{threshold: threshold, registry: registry}
}

// DefaultThreshold returns the configured intervention threshold.
func (p *ThresholdPolicy) DefaultThreshold() float64 {
	return p.threshold
}

// ThresholdFor returns the threshold in effect for a conversation.
func (p *ThresholdPolicy) ThresholdFor(conversationID string) float64 {
	if p.registry == nil {
		return p.threshold
	}
	return p.registry.Threshold(conversationID, p.threshold)
}

func (p *ThresholdPolicy) ShouldRespond(msg model.ProcessedMessage) bool {
	conv := msg.Original.ConversationID
	if p.registry != nil && p.registry.IsPaused(conv) {
		return false
	}
	return msg.Sentiment.Score < p.ThresholdFor(conv)
}
