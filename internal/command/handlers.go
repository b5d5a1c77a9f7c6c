package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
)

const defaultHandlerTimeout = 10 * time.Second

func reply(ctx context.Context, deps HandlerDeps, req Request, text string) error {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := req.Replier.Send(sendCtx, req.Message.ConversationID, text)
	if !res.Success {
		return errs.NewTransportError(fmt.Sprintf("failed to reply to %s command", req.Command), fmt.Errorf("%s", res.Reason))
	}
	return nil
}

func newHelpHandler(deps HandlerDeps) HandlerFunc {
	return func(ctx context.Context, req Request) error {
		return reply(ctx, deps, req, deps.Messages.Help)
	}
}

func newPauseHandler(deps HandlerDeps) HandlerFunc {
	return func(ctx context.Context, req Request) error {
		deps.Registry.Pause(req.Message.ConversationID)
		deps.Logger.InfoContext(ctx, "Interventions paused", "conversation_id", req.Message.ConversationID, "sender_id", req.Message.SenderID)
		return reply(ctx, deps, req, deps.Messages.Paused)
	}
}

func newResumeHandler(deps HandlerDeps) HandlerFunc {
	return func(ctx context.Context, req Request) error {
		deps.Registry.Resume(req.Message.ConversationID)
		deps.Logger.InfoContext(ctx, "Interventions resumed", "conversation_id", req.Message.ConversationID, "sender_id", req.Message.SenderID)
		return reply(ctx, deps, req, deps.Messages.Resumed)
	}
}

// newSettingsHandler shows the conversation's settings, or changes the
// threshold with "settings threshold <value>" / "settings threshold reset".
func newSettingsHandler(deps HandlerDeps) HandlerFunc {
	return func(ctx context.Context, req Request) error {
		conv := req.Message.ConversationID

		if len(req.Args) == 0 {
			state := "active"
			if deps.Registry.IsPaused(conv) {
				state = "paused"
			}
			text := fmt.Sprintf(deps.Messages.Settings, state, deps.Policy.ThresholdFor(conv), deps.ContextCapacity)
			return reply(ctx, deps, req, text)
		}

		if len(req.Args) != 2 || strings.ToLower(req.Args[0]) != "threshold" {
			return reply(ctx, deps, req, deps.Messages.SettingsUsage)
		}

		if strings.EqualFold(req.Args[1], "reset") {
			deps.Registry.ResetThreshold(conv)
			return reply(ctx, deps, req, fmt.Sprintf(deps.Messages.SettingsSaved, deps.Policy.DefaultThreshold()))
		}

		value, err := strconv.ParseFloat(req.Args[1], 64)
		if err != nil || value < -1 || value > 0 {
			return reply(ctx, deps, req, deps.Messages.SettingsUsage)
		}
		deps.Registry.SetThreshold(conv, value)
		deps.Logger.InfoContext(ctx, "Intervention threshold changed", "conversation_id", conv, "threshold", value)
		return reply(ctx, deps, req, fmt.Sprintf(deps.Messages.SettingsSaved, value))
	}
}

func newFeedbackHandler(deps HandlerDeps) HandlerFunc {
	return func(ctx context.Context, req Request) error {
		text := strings.TrimSpace(strings.Join(req.Args, " "))
		if text == "" {
			return reply(ctx, deps, req, deps.Messages.FeedbackEmpty)
		}

		feedback := &model.Feedback{
			ConversationID: req.Message.ConversationID,
			SenderID:       req.Message.SenderID,
			Content:        text,
			Timestamp:      time.Now().UTC(),
		}

		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = defaultHandlerTimeout
		}
		saveCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := deps.Store.SaveFeedback(saveCtx, feedback); err != nil {
			return fmt.Errorf("failed to save feedback: %w", err)
		}

		return reply(ctx, deps, req, deps.Messages.FeedbackThanks)
	}
}
