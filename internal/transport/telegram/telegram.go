// Package telegram implements a Telegram channel using the go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/transport"
)

// Name identifies the channel.
const Name = "telegram"

type messageSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// Transport receives updates through long polling and replies with SendMessage.
type Transport struct {
	bot        *tgbot.Bot
	sender     messageSender
	dispatcher *transport.Dispatcher
	logger     *slog.Logger
}

var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Runner    = (*Transport)(nil)
)

// New creates a Telegram transport. The bot identity is not fetched until Start.
func New(token string, log *slog.Logger) (*Transport, error) {
	if token == "" {
		return nil, errs.NewConfigError("telegram bot token cannot be empty", nil)
	}

	t := newTransport(nil, log)
	b, err := tgbot.New(token,
		tgbot.WithDefaultHandler(t.handleUpdate),
		tgbot.WithSkipGetMe(),
	)
	if err != nil {
		return nil, errs.NewTransportError("failed to create telegram bot", err)
	}
	t.bot = b
	t.sender = b

	return t, nil
}

func newTransport(sender messageSender, log *slog.Logger) *Transport {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "telegram_transport")

	return &Transport{
		sender:     sender,
		dispatcher: transport.NewDispatcher(log),
		logger:     log,
	}
}

// Name implements transport.Transport.
func (t *Transport) Name() string { return Name }

// Subscribe implements transport.Transport.
func (t *Transport) Subscribe(handler transport.Handler) {
	t.dispatcher.Subscribe(handler)
}

// Start polls for updates until ctx is cancelled.
func (t *Transport) Start(ctx context.Context) error {
	if t.bot == nil {
		return errs.NewTransportError("telegram bot not initialized", nil)
	}

	t.logger.InfoContext(ctx, "Starting Telegram listener")
	t.bot.Start(ctx)
	t.dispatcher.Wait()
	t.logger.InfoContext(ctx, "Telegram listener stopped")

	if ctx.Err() == nil {
		return errs.NewTransportError("telegram listener stopped unexpectedly", nil)
	}
	return nil
}

// Send posts text to the chat identified by to.
func (t *Transport) Send(ctx context.Context, to, text string) model.DeliveryResult {
	chatID, err := chatIDFromConversation(to)
	if err != nil {
		return model.DeliveryResult{Reason: err.Error()}
	}

	sent, err := t.sender.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to send Telegram message", "chat_id", chatID, "error", err)
		return model.DeliveryResult{Reason: err.Error()}
	}

	externalID := ""
	if sent != nil {
		externalID = strconv.Itoa(sent.ID)
	}
	return model.DeliveryResult{Success: true, ExternalID: externalID}
}

func (t *Transport) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Text == "" {
		return
	}
	t.dispatcher.Dispatch(ctx, toMessage(update.Message))
}

func toMessage(m *models.Message) model.Message {
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	conversationID := chatID
	if m.Chat.Type == models.ChatTypePrivate {
		conversationID = model.DirectConversationPrefix + chatID
	}

	senderID := chatID
	if m.From != nil {
		senderID = strconv.FormatInt(m.From.ID, 10)
	}

	return model.Message{
		SenderID:       senderID,
		ConversationID: conversationID,
		Content:        m.Text,
		Timestamp:      time.Unix(int64(m.Date), 0).UTC(),
		ExternalID:     strconv.Itoa(m.ID),
	}
}

func chatIDFromConversation(conversationID string) (int64, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(conversationID), model.DirectConversationPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", conversationID, err)
	}
	return id, nil
}
