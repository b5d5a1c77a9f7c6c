package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/lovebot/internal/command"
	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/events"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/moderation"
	"github.com/edgard/lovebot/internal/resilience"
	"github.com/edgard/lovebot/internal/transport"
)

// State is a stage of the per-message pipeline.
type State string

const (
	StateReceived       State = "received"
	StateStored         State = "stored"
	StateCommandHandled State = "command_handled"
	StateAnalyzed       State = "analyzed"
	StateResponded      State = "responded"
	StateSuppressed     State = "suppressed"
	StateFailed         State = "failed"
)

// MessageStore is the storage surface the pipeline uses.
type MessageStore interface {
	SaveMessage(ctx context.Context, message *model.Message) error
	History(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// CommandRouter intercepts command messages.
type CommandRouter interface {
	Parse(content string) (command.Command, []string, bool)
	TryHandle(ctx context.Context, msg model.Message, replier command.Replier) bool
}

// Pipeline analyzes a stored message against its history.
type Pipeline interface {
	Process(ctx context.Context, msg model.Message, history []model.Message) model.ProcessedMessage
}

// OrchestratorDeps provides the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Logger       *slog.Logger
	Store        MessageStore
	Router       CommandRouter
	Pipeline     Pipeline
	Policy       moderation.Policy
	Events       events.Publisher
	Moderation   config.ModerationConfig
	HistoryLimit int
	StoreTimeout time.Duration
}

// Orchestrator drives each inbound message through
// received, stored, command handled or analyzed, then responded or suppressed.
type Orchestrator struct {
	deps   OrchestratorDeps
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator, filling unset options with defaults.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = config.DefaultDBHistoryLimit
	}
	if deps.Moderation.MessageTimeout <= 0 {
		deps.Moderation.MessageTimeout = config.DefaultMessageTimeout
	}
	if deps.Moderation.ReplyText == "" {
		deps.Moderation.ReplyText = config.DefaultReplyText
	}
	if deps.Moderation.SendTimeout <= 0 {
		deps.Moderation.SendTimeout = config.DefaultSendTimeout
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = deps.Moderation.MessageTimeout
	}

	retry := resilience.DefaultRetryConfig()
	if deps.Moderation.StoreRetries > 0 {
		retry.Attempts = deps.Moderation.StoreRetries
	}

	return &Orchestrator{
		deps:   deps,
		retry:  retry,
		logger: deps.Logger.With("component", "orchestrator"),
	}
}

// Attach subscribes the orchestrator to t's inbound messages. Replies go back through t.
func (o *Orchestrator) Attach(t transport.Transport) {
	t.Subscribe(func(ctx context.Context, msg model.Message) {
		o.HandleInbound(ctx, t, msg)
	})
	o.logger.Info("Attached transport", "transport", t.Name())
}

// HandleInbound runs the pipeline for one message and returns its final state.
// Failures are logged and never propagate to the caller.
func (o *Orchestrator) HandleInbound(ctx context.Context, t transport.Transport, msg model.Message) (state State) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	log := o.logger.With(
		"transport", t.Name(),
		"conversation_id", msg.ConversationID,
		"message_id", msg.ID,
	)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while processing message", "panic", r, "stack", string(debug.Stack()))
			state = StateFailed
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.deps.Moderation.MessageTimeout)
	defer cancel()

	log.DebugContext(ctx, "Message received", "state", StateReceived, "sender_id", msg.SenderID,
		"preview", logger.Preview(msg.Content, 40))

	if err := o.store(ctx, &msg); err != nil {
		log.ErrorContext(ctx, "Failed to store message, continuing", "state", StateReceived, "error", err)
	} else {
		log.DebugContext(ctx, "Message stored", "state", StateStored)
	}

	if cmd, _, ok := o.deps.Router.Parse(msg.Content); ok && o.deps.Router.TryHandle(ctx, msg, t) {
		log.InfoContext(ctx, "Command handled", "state", StateCommandHandled, "command", string(cmd))
		o.publish(ctx, events.Event{
			Type:           events.TypeCommand,
			Transport:      t.Name(),
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			SenderID:       msg.SenderID,
			Command:        string(cmd),
		})
		return StateCommandHandled
	}

	history := o.history(ctx, log, msg.ConversationID)
	processed := o.deps.Pipeline.Process(ctx, msg, history)
	log.DebugContext(ctx, "Message analyzed", "state", StateAnalyzed,
		"score", processed.Sentiment.Score, "sentiment", processed.Sentiment.Label(),
		"intent", processed.Analysis.Intent, "topics", processed.Analysis.Topics,
		"relevant_context", len(processed.RelevantContext))

	if !o.deps.Policy.ShouldRespond(processed) {
		log.DebugContext(ctx, "No intervention", "state", StateSuppressed)
		return StateSuppressed
	}

	// The reply gets its own budget so a slow earlier stage cannot drop it.
	ctx, cancelSend := context.WithTimeout(context.WithoutCancel(ctx), o.deps.Moderation.SendTimeout)
	defer cancelSend()

	result := t.Send(ctx, msg.ConversationID, o.deps.Moderation.ReplyText)
	score := processed.Sentiment.Score
	if !result.Success {
		log.ErrorContext(ctx, "Failed to deliver intervention", "state", StateResponded, "reason", result.Reason)
		o.publish(ctx, events.Event{
			Type:           events.TypeDelivery,
			Transport:      t.Name(),
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Score:          &score,
			Detail:         result.Reason,
		})
		return StateResponded
	}

	log.InfoContext(ctx, "Intervention sent", "state", StateResponded, "score", score, "external_id", result.ExternalID)
	o.publish(ctx, events.Event{
		Type:           events.TypeIntervention,
		Transport:      t.Name(),
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		Score:          &score,
		Detail:         result.ExternalID,
	})
	return StateResponded
}

func (o *Orchestrator) store(ctx context.Context, msg *model.Message) error {
	return resilience.WithRetry(ctx, o.retry, func(ctx context.Context) error {
		sctx, cancel := context.WithTimeout(ctx, o.deps.StoreTimeout)
		defer cancel()
		if err := o.deps.Store.SaveMessage(sctx, msg); err != nil {
			return fmt.Errorf("save message: %w", err)
		}
		return nil
	})
}

func (o *Orchestrator) history(ctx context.Context, log *slog.Logger, conversationID string) []model.Message {
	hctx, cancel := context.WithTimeout(ctx, o.deps.StoreTimeout)
	defer cancel()

	history, err := o.deps.Store.History(hctx, conversationID, o.deps.HistoryLimit)
	if err != nil {
		log.WarnContext(ctx, "Failed to load history, continuing without it", "error", err)
		return []model.Message{}
	}
	return history
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.deps.Events.Publish(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish event", "type", event.Type, "error", err)
	}
}
