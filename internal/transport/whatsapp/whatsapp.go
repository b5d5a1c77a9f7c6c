// Package whatsapp implements the WhatsApp channel on top of the Twilio REST API
// and Twilio's inbound message webhook.
package whatsapp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/transport"
)

// Name identifies the channel.
const Name = "whatsapp"

const addressPrefix = "whatsapp:"

// messageCreator is the subset of the Twilio API service used for sending.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// signatureValidator checks the X-Twilio-Signature header of a webhook request.
type signatureValidator interface {
	Validate(url string, params map[string]string, expectedSignature string) bool
}

// Transport sends through Twilio and receives through the webhook routes.
type Transport struct {
	cfg        config.WhatsAppConfig
	api        messageCreator
	validator  signatureValidator
	dispatcher *transport.Dispatcher
	logger     *slog.Logger
}

var _ transport.Transport = (*Transport)(nil)

// New creates a Twilio-backed WhatsApp transport.
func New(cfg config.WhatsAppConfig, log *slog.Logger) (*Transport, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errs.NewConfigError("twilio account sid and auth token are required", nil)
	}
	if cfg.PhoneNumber == "" {
		return nil, errs.NewConfigError("whatsapp phone number is required", nil)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	validator := twilioclient.NewRequestValidator(cfg.AuthToken)
	return newTransport(cfg, client.Api, &validator, log), nil
}

func newTransport(cfg config.WhatsAppConfig, api messageCreator, validator signatureValidator, log *slog.Logger) *Transport {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "whatsapp_transport")

	return &Transport{
		cfg:        cfg,
		api:        api,
		validator:  validator,
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

// Wait blocks until in-flight inbound handlers finish.
func (t *Transport) Wait() {
	t.dispatcher.Wait()
}

// Send delivers text to a phone number or group id. Direct conversation ids
// are accepted and resolved to the participant's number.
func (t *Transport) Send(ctx context.Context, to, text string) model.DeliveryResult {
	recipient := recipientAddress(to)
	if recipient == "" {
		return model.DeliveryResult{Reason: "empty recipient"}
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(addressPrefix + strings.TrimPrefix(t.cfg.PhoneNumber, addressPrefix))
	params.SetTo(addressPrefix + recipient)
	params.SetBody(text)

	type result struct {
		msg *openapi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := t.api.CreateMessage(params)
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		t.logger.WarnContext(ctx, "WhatsApp send abandoned", "to", recipient, "error", ctx.Err())
		return model.DeliveryResult{Reason: ctx.Err().Error()}
	case res := <-done:
		if res.err != nil {
			t.logger.ErrorContext(ctx, "Failed to send WhatsApp message", "to", recipient, "error", res.err)
			return model.DeliveryResult{Reason: res.err.Error()}
		}
		sid := ""
		if res.msg != nil && res.msg.Sid != nil {
			sid = *res.msg.Sid
		}
		t.logger.DebugContext(ctx, "Sent WhatsApp message", "to", recipient, "sid", sid)
		return model.DeliveryResult{Success: true, ExternalID: sid}
	}
}

// SendPrivate sends text directly to one participant.
func (t *Transport) SendPrivate(ctx context.Context, userID, text string) model.DeliveryResult {
	return t.Send(ctx, userID, text)
}

func recipientAddress(to string) string {
	to = strings.TrimSpace(to)
	to = strings.TrimPrefix(to, model.DirectConversationPrefix)
	return strings.TrimPrefix(to, addressPrefix)
}
