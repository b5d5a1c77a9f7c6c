package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
)

// MaxSearchResults caps the number of messages returned by Store.Search.
const MaxSearchResults = 50

// Store persists chat messages and retrieves them by conversation.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage appends a message. An empty ID is filled with a new UUID.
	SaveMessage(ctx context.Context, message *model.Message) error

	// History returns up to limit messages of a conversation, newest first.
	// An unknown conversation yields an empty slice.
	History(ctx context.Context, conversationID string, limit int) ([]model.Message, error)

	// Search returns messages of a conversation whose content matches any of terms,
	// newest first with insertion order breaking timestamp ties.
	Search(ctx context.Context, terms []string, conversationID string) ([]model.Message, error)

	// SaveFeedback stores feedback sent through the feedback command.
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error

	// DeleteMessagesBefore removes messages older than cutoff and returns how many were removed.
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RunMaintenance compacts the underlying storage.
	RunMaintenance(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Open creates the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	switch cfg.Driver {
	case "sqlite":
		db, err := NewDB(cfg.ConnectionString)
		if err != nil {
			return nil, errs.NewStorageError("open sqlite store", err)
		}
		return NewStore(db, log), nil
	case "mongo":
		return NewMongoStore(ctx, cfg, log)
	default:
		return nil, errs.NewConfigError(fmt.Sprintf("unsupported database driver %q", cfg.Driver), nil)
	}
}

func prepareMessage(message *model.Message) error {
	if message == nil {
		return errs.NewValidationError("cannot save nil message", nil)
	}
	if message.ConversationID == "" {
		return errs.NewValidationError("message must have a conversation_id", nil)
	}
	if message.SenderID == "" {
		return errs.NewValidationError("message must have a sender_id", nil)
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	return nil
}

func prepareFeedback(feedback *model.Feedback) error {
	if feedback == nil {
		return errs.NewValidationError("cannot save nil feedback", nil)
	}
	if feedback.ConversationID == "" || strings.TrimSpace(feedback.Content) == "" {
		return errs.NewValidationError("feedback must have a conversation_id and content", nil)
	}
	if feedback.Timestamp.IsZero() {
		feedback.Timestamp = time.Now().UTC()
	}
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	return nil
}

// normalizeTerms lowercases, trims and deduplicates search terms, keeping order.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
