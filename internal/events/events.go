// Package events publishes pipeline events (interventions, commands) to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
)

// Event types.
const (
	TypeIntervention = "intervention"
	TypeCommand      = "command"
	TypeDelivery     = "delivery_failed"
)

// Event is the JSON document published for each notable pipeline outcome.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Transport      string    `json:"transport"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id,omitempty"`
	Command        string    `json:"command,omitempty"`
	Score          *float64  `json:"score,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher delivers events. Publishing is best effort and never blocks the pipeline.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events on "<prefix>.<type>" subjects.
type NATSPublisher struct {
	nc     conn
	prefix string
	logger *slog.Logger
}

// New connects to url and returns a NATS publisher, or Nop when url is empty.
func New(url, prefix string, log *slog.Logger) (Publisher, error) {
	if log == nil {
		log = logger.Discard()
	}
	if strings.TrimSpace(url) == "" {
		log.Info("Event publishing disabled, no NATS url configured")
		return Nop{}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("lovebot"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errs.NewTransportError("failed to connect to NATS", err)
	}
	log.Info("Connected to NATS", "url", nc.ConnectedUrl())

	return newNATSPublisher(nc, prefix, log), nil
}

func newNATSPublisher(nc conn, prefix string, log *slog.Logger) *NATSPublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &NATSPublisher{
		nc:     nc,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: log.With("component", "events"),
	}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish fills the id and timestamp when missing and publishes the event.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	subject := p.Subject(event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "event_id", event.ID, "error", err)
		return errs.NewTransportError("failed to publish event", err)
	}
	p.logger.DebugContext(ctx, "Published event", "subject", subject, "event_id", event.ID)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
