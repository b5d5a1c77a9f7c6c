package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/moderation"
)

// Replier sends a text reply to a conversation. It is the transport the command arrived on.
type Replier interface {
	Send(ctx context.Context, to, text string) model.DeliveryResult
}

// FeedbackStore persists feedback sent with the feedback command.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error
}

// HandlerDeps provides dependencies for command handlers.
type HandlerDeps struct {
	Logger          *slog.Logger
	Store           FeedbackStore
	Registry        *moderation.Registry
	Policy          *moderation.ThresholdPolicy
	Messages        config.MessagesConfig
	ContextCapacity int
	Prefix          string
	Timeout         time.Duration
}
