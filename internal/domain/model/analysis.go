package model

// Entity is an opaque key/value record extracted from message text.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IntentUnknown is reported when no intent could be inferred.
const IntentUnknown = "unknown"

// AnalysisResult holds the structural analysis of a message.
// Topics and Tokens keep the order in which they were found.
type AnalysisResult struct {
	Entities []Entity
	Intent   string
	Topics   []string
	Tokens   []string
}

// HasTopic reports whether topic is one of the result's topics.
func (a AnalysisResult) HasTopic(topic string) bool {
	for _, t := range a.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// SharesTopic reports whether a and other have at least one topic in common.
func (a AnalysisResult) SharesTopic(other AnalysisResult) bool {
	for _, t := range other.Topics {
		if a.HasTopic(t) {
			return true
		}
	}
	return false
}

// SentimentResult is the emotional polarity of a message.
// Exactly one of IsPositive, IsNegative and IsNeutral is true.
type SentimentResult struct {
	Score      float64
	Magnitude  float64
	IsPositive bool
	IsNegative bool
	IsNeutral  bool
}

// Label returns a short name for the sentiment class.
func (s SentimentResult) Label() string {
	switch {
	case s.IsPositive:
		return "positive"
	case s.IsNegative:
		return "negative"
	default:
		return "neutral"
	}
}

// ProcessedMessage is the output of the analysis stage for one message.
// RelevantContext is ordered newest first.
type ProcessedMessage struct {
	Original        Message
	Analysis        AnalysisResult
	Sentiment       SentimentResult
	RelevantContext []Message
}

// DeliveryResult reports the outcome of an outbound send.
type DeliveryResult struct {
	Success    bool
	ExternalID string
	Reason     string
}
