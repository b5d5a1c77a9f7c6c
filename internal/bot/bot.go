// Package bot implements the LoveBot message pipeline, lifecycle management,
// and component orchestration.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/transport"
)

// Server is a blocking component such as the webhook HTTP server.
type Server interface {
	Run(ctx context.Context) error
}

// TaskScheduler runs the scheduled housekeeping jobs.
type TaskScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger       *slog.Logger
	orchestrator *Orchestrator
	transports   []transport.Transport
	server       Server
	scheduler    TaskScheduler
}

// NewBot attaches the orchestrator to every transport and returns the Bot.
// server and scheduler may be nil.
func NewBot(log *slog.Logger, orchestrator *Orchestrator, transports []transport.Transport, server Server, scheduler TaskScheduler) *Bot {
	if log == nil {
		log = logger.Discard()
	}
	for _, t := range transports {
		orchestrator.Attach(t)
	}
	return &Bot{
		logger:       log.With("component", "bot_orchestrator"),
		orchestrator: orchestrator,
		transports:   transports,
		server:       server,
		scheduler:    scheduler,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...", "transports", len(b.transports))

	g, gCtx := errgroup.WithContext(ctx)

	for _, t := range b.transports {
		runner, ok := t.(transport.Runner)
		if !ok {
			continue
		}
		name := t.Name()
		g.Go(func() error {
			b.logger.Info("Starting transport listener", "transport", name)
			if err := runner.Start(gCtx); err != nil {
				return fmt.Errorf("transport %s: %w", name, err)
			}
			b.logger.Info("Transport listener stopped", "transport", name)
			return nil
		})
	}

	if b.server != nil {
		g.Go(func() error {
			return b.server.Run(gCtx)
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(gCtx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	for _, t := range b.transports {
		if w, ok := t.(interface{ Wait() }); ok {
			w.Wait()
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
