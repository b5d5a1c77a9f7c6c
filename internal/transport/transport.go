// Package transport defines the messaging channel abstraction and the
// single-subscriber dispatcher shared by channel implementations.
package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/logger"
)

// Handler receives one inbound message.
type Handler func(ctx context.Context, msg model.Message)

// Transport sends and receives messages on one channel.
type Transport interface {
	// Name identifies the channel in logs and events.
	Name() string
	// Send delivers text to a recipient or conversation. Failures are reported
	// in the result, never as an error.
	Send(ctx context.Context, to, text string) model.DeliveryResult
	// Subscribe registers the inbound handler. A later call replaces the earlier handler.
	Subscribe(handler Handler)
}

// Runner is implemented by transports that own a receive loop.
// Start blocks until ctx is cancelled or the loop fails.
type Runner interface {
	Start(ctx context.Context) error
}

// Dispatcher holds the single inbound handler of a transport and invokes it
// asynchronously so the receive loop never waits on message processing.
type Dispatcher struct {
	mu      sync.RWMutex
	handler Handler
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{logger: log}
}

// Subscribe replaces the current handler.
func (d *Dispatcher) Subscribe(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// Dispatch hands msg to the handler on its own goroutine. The handler's context
// is detached from ctx cancellation so request-scoped contexts do not abort it.
// It reports false when no handler is registered.
func (d *Dispatcher) Dispatch(ctx context.Context, msg model.Message) bool {
	d.mu.RLock()
	h := d.handler
	d.mu.RUnlock()

	if h == nil {
		d.logger.WarnContext(ctx, "Dropping inbound message, no handler subscribed",
			"conversation_id", msg.ConversationID, "message_id", msg.ID)
		return false
	}

	hctx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		h(hctx, msg)
	}()
	return true
}

// Wait blocks until every dispatched handler has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
