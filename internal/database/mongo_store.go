package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
)

const (
	messagesCollection = "messages"
	feedbackCollection = "feedback"
)

type messageDocument struct {
	ObjectID       primitive.ObjectID `bson:"_id,omitempty"`
	MessageID      string             `bson:"message_id"`
	ConversationID string             `bson:"conversation_id"`
	SenderID       string             `bson:"sender_id"`
	Content        string             `bson:"content"`
	Timestamp      time.Time          `bson:"timestamp"`
	ExternalID     string             `bson:"external_id,omitempty"`
}

func (d messageDocument) toModel() model.Message {
	return model.Message{
		ID:             d.MessageID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Content:        d.Content,
		Timestamp:      d.Timestamp.UTC(),
		ExternalID:     d.ExternalID,
	}
}

type feedbackDocument struct {
	FeedbackID     string    `bson:"feedback_id"`
	ConversationID string    `bson:"conversation_id"`
	SenderID       string    `bson:"sender_id"`
	Content        string    `bson:"content"`
	Timestamp      time.Time `bson:"timestamp"`
}

// mongoStore implements Store on a MongoDB database.
type mongoStore struct {
	client   *mongo.Client
	messages *mongo.Collection
	feedback *mongo.Collection
	logger   *slog.Logger
}

// NewMongoStore connects to MongoDB and ensures the collection indexes exist.
func NewMongoStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.ConnectionString))
	if err != nil {
		return nil, errs.NewStorageError("failed to connect to mongodb", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.NewStorageError("failed to ping mongodb", err)
	}

	db := client.Database(cfg.Name)
	s := &mongoStore{
		client:   client,
		messages: db.Collection(messagesCollection),
		feedback: db.Collection(feedbackCollection),
		logger:   log.With("component", "store", "driver", "mongo"),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s.logger.Info("Connected to MongoDB", "database", cfg.Name)
	return s, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "content", Value: "text"}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "message_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return errs.NewStorageError("failed to create message indexes", err)
	}
	return nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *mongoStore) SaveMessage(ctx context.Context, message *model.Message) error {
	if err := prepareMessage(message); err != nil {
		return err
	}

	doc := messageDocument{
		MessageID:      message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		Timestamp:      message.Timestamp.UTC(),
		ExternalID:     message.ExternalID,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"conversation_id", message.ConversationID, "message_id", message.ID, "error", err)
		return errs.NewStorageError(fmt.Sprintf("failed to save message in conversation %s", message.ConversationID), err)
	}
	return nil
}

func (s *mongoStore) History(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}
	messages, err := s.find(ctx, bson.M{"conversation_id": conversationID}, newestFirst(limit))
	if err != nil {
		return nil, errs.NewStorageError(fmt.Sprintf("failed to fetch history for conversation %s", conversationID), err)
	}
	return messages, nil
}

func (s *mongoStore) Search(ctx context.Context, terms []string, conversationID string) ([]model.Message, error) {
	filter, ok := searchFilter(terms, conversationID)
	if !ok {
		return []model.Message{}, nil
	}
	messages, err := s.find(ctx, filter, newestFirst(MaxSearchResults))
	if err != nil {
		return nil, errs.NewStorageError(fmt.Sprintf("failed to search conversation %s", conversationID), err)
	}
	return messages, nil
}

func (s *mongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Message, error) {
	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, d.toModel())
	}
	return messages, nil
}

func (s *mongoStore) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	if err := prepareFeedback(feedback); err != nil {
		return err
	}
	doc := feedbackDocument{
		FeedbackID:     feedback.ID,
		ConversationID: feedback.ConversationID,
		SenderID:       feedback.SenderID,
		Content:        feedback.Content,
		Timestamp:      feedback.Timestamp.UTC(),
	}
	if _, err := s.feedback.InsertOne(ctx, doc); err != nil {
		return errs.NewStorageError("failed to save feedback", err)
	}
	return nil
}

func (s *mongoStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.messages.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, errs.NewStorageError("failed to delete old messages", err)
	}
	return res.DeletedCount, nil
}

// RunMaintenance re-creates missing indexes; MongoDB compacts on its own.
func (s *mongoStore) RunMaintenance(ctx context.Context) error {
	return s.ensureIndexes(ctx)
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return errs.NewStorageError("failed to disconnect from mongodb", err)
	}
	return nil
}

func newestFirst(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}

// searchFilter builds a $text query matching any of terms within one conversation.
func searchFilter(terms []string, conversationID string) (bson.M, bool) {
	terms = normalizeTerms(terms)
	if len(terms) == 0 {
		return nil, false
	}
	return bson.M{
		"conversation_id": conversationID,
		"$text":           bson.M{"$search": strings.Join(terms, " ")},
	}, true
}
