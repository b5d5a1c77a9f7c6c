// Package cli defines the lovebot command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/lovebot/internal/app"
	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/export"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/transport/telegram"
	"github.com/edgard/lovebot/internal/transport/whatsapp"
)

const version = "0.1.0"

type rootOptions struct {
	configPath string
}

// NewRoot builds the root command. logger is used until a configuration is loaded.
func NewRoot(log *slog.Logger) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "lovebot",
		Short:         "LoveBot watches couples' group chats and steps in when tension rises",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./config.yaml", "Path to configuration file")

	root.AddCommand(newServeCommand(log, opts))
	root.AddCommand(newSendCommand(log, opts))
	root.AddCommand(newExportCommand(log, opts))
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfig(log *slog.Logger, opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Error("Failed to load configuration", "path", opts.configPath, "error", err)
		return nil, nil, err
	}
	return cfg, logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON), nil
}

func newServeCommand(log *slog.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: webhooks, transports and scheduled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(log, opts)
			if err != nil {
				return err
			}
			log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			bot, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := bot.Close(); err != nil {
					log.Error("Error during shutdown", "error", err)
				}
			}()

			log.Info("Starting bot...")
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("Bot stopped gracefully.")
			return nil
		},
	}
}

type sender interface {
	Send(ctx context.Context, to, text string) model.DeliveryResult
}

func newSendCommand(log *slog.Logger, opts *rootOptions) *cobra.Command {
	var channel string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send <recipient> <text...>",
		Short: "Send a one-off message through a transport",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(log, opts)
			if err != nil {
				return err
			}

			var s sender
			switch channel {
			case whatsapp.Name:
				s, err = whatsapp.New(cfg.WhatsApp, log)
			case telegram.Name:
				s, err = telegram.New(cfg.Telegram.Token, log)
			default:
				return fmt.Errorf("unknown channel %q, use %s or %s", channel, whatsapp.Name, telegram.Name)
			}
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSend(ctx, cmd, s, args[0], strings.Join(args[1:], " "))
		},
	}
	cmd.Flags().StringVar(&channel, "channel", whatsapp.Name, "Transport to send through (whatsapp or telegram)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Send timeout")
	return cmd
}

func runSend(ctx context.Context, cmd *cobra.Command, s sender, to, text string) error {
	res := s.Send(ctx, to, text)
	if !res.Success {
		return fmt.Errorf("send failed: %s", res.Reason)
	}
	cmd.Printf("sent to %s (id %s)\n", to, res.ExternalID)
	return nil
}

func newExportCommand(log *slog.Logger, opts *rootOptions) *cobra.Command {
	var conversation, out string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a conversation's history to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(log, opts)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Database.HistoryLimit
			}

			ctx := cmd.Context()
			store, err := app.OpenStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			n, err := export.History(ctx, store, conversation, limit, f)
			if closeErr := f.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("failed to close %s: %w", out, closeErr)
			}
			if err != nil {
				return err
			}

			cmd.Printf("exported %d messages of %s to %s\n", n, conversation, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "Conversation id (group id or dm:<number>)")
	cmd.Flags().StringVarP(&out, "out", "o", "history.xlsx", "Output file")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of messages (default database.history_limit)")
	_ = cmd.MarkFlagRequired("conversation")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
