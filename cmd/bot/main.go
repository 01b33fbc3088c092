package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flor3z/levelbot/internal/bot"
	"github.com/flor3z/levelbot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	slog.Info("Starting level bot",
		"prefix", cfg.Prefix,
		"displayLength", cfg.DisplayLength,
		"database", cfg.DatabasePath,
	)

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg)
	if err != nil {
		slog.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	if err := b.Start(ctx); err != nil {
		slog.Error("Failed to start bot", "error", err)
		if _, stopErr := b.Stop(); stopErr != nil {
			slog.Error("Failed to save users", "error", stopErr)
		}
		os.Exit(1)
	}

	slog.Info("Bot is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	slog.Info("Shutting down...")

	// Rewrite every user so a failed write-through is not lost
	saved, err := b.Stop()
	if err != nil {
		slog.Error("Failed to save users on shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Saved users", "count", saved)
	slog.Info("Bot stopped")
}

// setupLogging installs a text handler at the named level, falling back to info
func setupLogging(level string) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
