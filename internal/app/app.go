// Package app wires LoveBot's components together and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/lovebot/internal/analysis"
	"github.com/edgard/lovebot/internal/bot"
	"github.com/edgard/lovebot/internal/bot/tasks"
	"github.com/edgard/lovebot/internal/command"
	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/database"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/events"
	"github.com/edgard/lovebot/internal/httpserver"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/memory"
	"github.com/edgard/lovebot/internal/moderation"
	"github.com/edgard/lovebot/internal/transport"
	"github.com/edgard/lovebot/internal/transport/telegram"
	"github.com/edgard/lovebot/internal/transport/whatsapp"
)

// App holds the long-lived components of a running bot.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      database.Store
	events     events.Publisher
	transports []transport.Transport
	bot        *bot.Bot
}

// New builds every component from cfg. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	start := time.Now()

	a := &App{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			log.Error("Failed to release resources after init failure", "error", closeErr)
		}
		return nil, err
	}

	log.Info("Application initialized",
		"duration_ms", time.Since(start).Milliseconds(),
		"database", cfg.Database.Driver,
		"transports", len(a.transports),
		"gemini", cfg.Gemini.Enabled)
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.store = store

	pub, err := events.New(cfg.Events.NatsURL, cfg.Events.SubjectPrefix, log)
	if err != nil {
		return fmt.Errorf("failed to initialize events: %w", err)
	}
	a.events = pub

	analyzer, err := newAnalyzer(ctx, cfg, log)
	if err != nil {
		return err
	}

	mem := memory.NewManager(cfg.Moderation.ContextCapacity)
	registry := moderation.NewRegistry()
	policy := moderation.NewThresholdPolicy(cfg.Moderation.InterventionThreshold, registry)

	router := command.NewRouter(command.HandlerDeps{
		Logger:          log,
		Store:           store,
		Registry:        registry,
		Policy:          policy,
		Messages:        cfg.Messages,
		ContextCapacity: cfg.Moderation.ContextCapacity,
		Prefix:          cfg.Moderation.CommandPrefix,
		Timeout:         cfg.Database.Timeout,
	})

	orch := bot.NewOrchestrator(bot.OrchestratorDeps{
		Logger:       log,
		Store:        store,
		Router:       router,
		Pipeline:     analysis.NewProcessor(analyzer, mem, store, log),
		Policy:       policy,
		Events:       pub,
		Moderation:   cfg.Moderation,
		HistoryLimit: cfg.Database.HistoryLimit,
		StoreTimeout: cfg.Database.Timeout,
	})

	var routes []httpserver.RouteRegistrar
	if cfg.WhatsApp.Enabled {
		wa, err := whatsapp.New(cfg.WhatsApp, log)
		if err != nil {
			return fmt.Errorf("failed to initialize whatsapp transport: %w", err)
		}
		a.transports = append(a.transports, wa)
		routes = append(routes, wa)
	}
	if cfg.Telegram.Enabled {
		tg, err := telegram.New(cfg.Telegram.Token, log)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram transport: %w", err)
		}
		a.transports = append(a.transports, tg)
	}
	if len(a.transports) == 0 {
		return errs.NewConfigError("no transport enabled, enable whatsapp or telegram", nil)
	}

	server := httpserver.New(cfg.HTTP, httpserver.NewRouter(log, store, routes...), log)

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Context: mem,
		Config:  cfg,
	})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		return err
	}

	a.bot = bot.NewBot(log, orch, a.transports, server, sched)
	return nil
}

// OpenStore opens the configured message store and verifies the connection.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (database.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()

	store, err := database.Open(openCtx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	if err := store.Ping(openCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to reach %s store: %w", cfg.Database.Driver, err)
	}
	return store, nil
}

func newAnalyzer(ctx context.Context, cfg *config.Config, log *slog.Logger) (analysis.Analyzer, error) {
	th := analysis.Thresholds{
		Positive: cfg.Analysis.PositiveThreshold,
		Negative: cfg.Analysis.NegativeThreshold,
	}
	lexicon := analysis.NewLexicon(cfg.Analysis.MaxTokens, th)
	if !cfg.Gemini.Enabled {
		return lexicon, nil
	}

	g, err := analysis.NewGemini(ctx, cfg.Gemini, lexicon, th, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini analyzer: %w", err)
	}
	return g, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	return a.bot.Run(ctx)
}

// Close releases the store and the event connection.
func (a *App) Close() error {
	var errList []error
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
