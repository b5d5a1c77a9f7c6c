package database

import (
	"time"

	"github.com/edgard/lovebot/internal/domain/model"
)

// messageRow is the sqlite representation of a message.
// Timestamps are stored as unix nanoseconds so ordering is exact.
type messageRow struct {
	Seq            int64  `db:"seq"`
	ID             string `db:"id"`
	ConversationID string `db:"conversation_id"`
	SenderID       string `db:"sender_id"`
	Content        string `db:"content"`
	Timestamp      int64  `db:"timestamp"`
	ExternalID     string `db:"external_id"`
	CreatedAt      int64  `db:"created_at"`
}

func newMessageRow(m *model.Message) messageRow {
	return messageRow{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Timestamp:      m.Timestamp.UnixNano(),
		ExternalID:     m.ExternalID,
		CreatedAt:      time.Now().UTC().UnixNano(),
	}
}

func (r messageRow) toModel() model.Message {
	return model.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Content:        r.Content,
		Timestamp:      time.Unix(0, r.Timestamp).UTC(),
		ExternalID:     r.ExternalID,
	}
}

type feedbackRow struct {
	ID             string `db:"id"`
	ConversationID string `db:"conversation_id"`
	SenderID       string `db:"sender_id"`
	Content        string `db:"content"`
	Timestamp      int64  `db:"timestamp"`
}
