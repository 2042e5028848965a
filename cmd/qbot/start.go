package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qbridge/qbot/internal/adapters/telegram"
	"github.com/qbridge/qbot/internal/banner"
	"github.com/qbridge/qbot/internal/comms"
	"github.com/qbridge/qbot/internal/config"
	"github.com/qbridge/qbot/internal/executor"
	"github.com/qbridge/qbot/internal/health"
	"github.com/qbridge/qbot/internal/logging"
	"github.com/qbridge/qbot/internal/output"
	"github.com/qbridge/qbot/internal/session"
)

func newStartCmd() *cobra.Command {
	var toolPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Telegram bot",
		Long: `Start polling Telegram and dispatching messages to the Q CLI.

Configuration is read from the config file, then .env, then the environment
(BOT_TOKEN, ALLOWED_USERS, Q_CLI_PATH, TIMEOUT, CHAT_TIMEOUT).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if toolPath != "" {
				cfg.Tool.Path = toolPath
			}
			return runBot(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&toolPath, "q-path", "", "Path to the Q CLI executable (overrides Q_CLI_PATH)")
	return cmd
}

func runBot(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	log := logging.WithComponent("main")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tool := executor.NewQCLI(executor.NewResolver(cfg.Tool.Path), executor.NewRunner())
	if path, err := tool.Locate(); err != nil {
		log.Warn("Q CLI not found, commands will fail until it is installed", slog.Any("error", err))
	} else {
		log.Info("Q CLI located", slog.String("path", path))
	}

	client, err := telegram.NewClient(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	if err := client.CheckSingleton(); err != nil {
		return fmt.Errorf("another bot instance is polling with this token: %w", err)
	}

	messenger := telegram.NewMessenger(client)
	sessions := session.NewMemoryStore()
	handler := comms.NewHandler(&comms.HandlerConfig{
		Messenger:      messenger,
		Sessions:       sessions,
		Tool:           tool,
		Extractor:      output.NewExtractor(cfg.Noise),
		Chunker:        output.NewChunker(cfg.Output.Budget, cfg.Output.MaxChunks),
		AllowedUsers:   cfg.Telegram.AllowedUsers,
		CommandTimeout: cfg.Tool.Timeout,
		ChatTimeout:    cfg.Tool.ChatTimeout,
		StatusTimeout:  cfg.Tool.StatusTimeout,
		OutputLimit:    cfg.Output.OutputLimit,
	})
	transport := telegram.NewTransport(client, handler, messenger, cfg.Telegram)

	banner.StartupTelegram(os.Stdout, version, client.Username(), health.RunChecks(ctx, cfg, tool))
	log.Info("Bot started",
		slog.String("bot", client.Username()),
		slog.Int("allowed_users", len(cfg.Telegram.AllowedUsers)),
	)

	transport.StartPolling(ctx)
	<-ctx.Done()

	log.Info("Shutting down")
	transport.Stop()
	log.Info("Bot stopped", slog.Int("chat_sessions_cleared", sessions.Clear()))
	return nil
}
