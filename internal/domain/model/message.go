// Package model contains the core domain entities for LoveBot.
// These models represent the core business objects and are independent of external concerns.
package model

import (
	"strings"
	"time"
)

// DirectConversationPrefix marks conversation ids derived from a one-to-one chat.
const DirectConversationPrefix = "dm:"

// Message is a single chat message as received from a transport.
// It is created on ingestion and persisted once; it is never mutated afterwards.
type Message struct {
	ID             string
	SenderID       string
	ConversationID string
	Content        string
	Timestamp      time.Time

	// ExternalID is the transport-assigned id (Twilio SID, Telegram message id).
	ExternalID string
}

// InboundPayload is the wire shape delivered by webhook transports.
type InboundPayload struct {
	From    string `json:"from"`
	GroupID string `json:"group_id,omitempty"`
	Body    string `json:"body"`
	ID      string `json:"id,omitempty"`
}

// ConversationID resolves the conversation a payload belongs to.
// Payloads without a group id are treated as a direct conversation with the sender.
func (p InboundPayload) ConversationID() string {
	if g := strings.TrimSpace(p.GroupID); g != "" {
		return g
	}
	return DirectConversationPrefix + p.From
}

// Feedback is free text a participant sent through the feedback command.
type Feedback struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	Timestamp      time.Time
}
