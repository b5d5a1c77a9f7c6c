package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
)

// sqlxStore implements Store on top of sqlite through sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a migrated sqlite database.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store", "driver", "sqlite"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *model.Message) error {
	if err := prepareMessage(message); err != nil {
		return err
	}

	query := `
        INSERT INTO messages (id, conversation_id, sender_id, content, timestamp, external_id, created_at)
        VALUES (:id, :conversation_id, :sender_id, :content, :timestamp, :external_id, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, newMessageRow(message))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"conversation_id", message.ConversationID, "message_id", message.ID, "error", err)
		return errs.NewStorageError(fmt.Sprintf("failed to save message in conversation %s", message.ConversationID), err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when saving message",
			"conversation_id", message.ConversationID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"conversation_id", message.ConversationID, "message_id", message.ID)
	return nil
}

func (s *sqlxStore) History(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}

	var rows []messageRow
	query := `
        SELECT seq, id, conversation_id, sender_id, content, timestamp, external_id, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY timestamp DESC, seq DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &rows, query, conversationID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching history", "conversation_id", conversationID, "error", err)
		return nil, errs.NewStorageError(fmt.Sprintf("failed to fetch history for conversation %s", conversationID), err)
	}

	return toMessages(rows), nil
}

func (s *sqlxStore) Search(ctx context.Context, terms []string, conversationID string) ([]model.Message, error) {
	terms = normalizeTerms(terms)
	if len(terms) == 0 {
		return []model.Message{}, nil
	}

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+2)
	args = append(args, conversationID)
	for _, term := range terms {
		clauses = append(clauses, `LOWER(content) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(term)+"%")
	}
	args = append(args, MaxSearchResults)

	query := `
        SELECT seq, id, conversation_id, sender_id, content, timestamp, external_id, created_at
        FROM messages
        WHERE conversation_id = ? AND (` + strings.Join(clauses, " OR ") + `)
        ORDER BY timestamp DESC, seq DESC
        LIMIT ?;
    `

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error searching messages", "conversation_id", conversationID, "error", err)
		return nil, errs.NewStorageError(fmt.Sprintf("failed to search conversation %s", conversationID), err)
	}

	return toMessages(rows), nil
}

func (s *sqlxStore) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	if err := prepareFeedback(feedback); err != nil {
		return err
	}

	query := `
        INSERT INTO feedback (id, conversation_id, sender_id, content, timestamp)
        VALUES (:id, :conversation_id, :sender_id, :content, :timestamp);
    `
	row := feedbackRow{
		ID:             feedback.ID,
		ConversationID: feedback.ConversationID,
		SenderID:       feedback.SenderID,
		Content:        feedback.Content,
		Timestamp:      feedback.Timestamp.UnixNano(),
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving feedback", "conversation_id", feedback.ConversationID, "error", err)
		return errs.NewStorageError("failed to save feedback", err)
	}
	return nil
}

func (s *sqlxStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE timestamp < ?;`, cutoff.UnixNano())
	if err != nil {
		return 0, errs.NewStorageError("failed to delete old messages", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errs.NewStorageError("failed to count deleted messages", err)
	}
	return deleted, nil
}

// RunMaintenance runs VACUUM and ANALYZE. Neither may run inside a transaction.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance...")
	for _, stmt := range []string{"VACUUM;", "ANALYZE;"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.ErrorContext(ctx, "SQL maintenance statement failed", "statement", stmt, "error", err)
			return errs.NewStorageError(fmt.Sprintf("failed to run %s", strings.TrimSuffix(stmt, ";")), err)
		}
	}
	s.logger.InfoContext(ctx, "SQL maintenance completed")
	return nil
}

func (s *sqlxStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return errs.NewStorageError("failed to close database", err)
	}
	return nil
}

func toMessages(rows []messageRow) []model.Message {
	messages := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, r.toModel())
	}
	return messages
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
