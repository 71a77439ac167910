// Package main is the entry point for the receipt-splitting Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/splitly-bot/internal/bot"
	"gitlab.com/yelinaung/splitly-bot/internal/config"
	"gitlab.com/yelinaung/splitly-bot/internal/database"
	"gitlab.com/yelinaung/splitly-bot/internal/gemini"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"gitlab.com/yelinaung/splitly-bot/internal/repository"
	"gitlab.com/yelinaung/splitly-bot/internal/server"
	"gitlab.com/yelinaung/splitly-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("splitly-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.OptionsFromConfig(cfg, version))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	store, ready, closeStore, err := openStateStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("backend", cfg.StateBackend).Msg("Failed to open state store")
	}
	defer closeStore()

	opts := []gemini.Option{gemini.WithModel(cfg.GeminiModel)}
	if cfg.AssignmentCacheSize > 0 {
		opts = append(opts, gemini.WithAssignmentCache(gemini.NewAssignmentCache(cfg.AssignmentCacheSize)))
	}
	aiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, opts...)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create metrics")
	}

	telegramBot, err := bot.New(cfg, store, aiClient, metrics)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		if err := server.New(cfg.HTTPAddr, ready).Run(ctx); err != nil {
			logger.Log.Error().Err(err).Msg("Health server failed")
		}
	}()

	telegramBot.Start(ctx)
	logger.Log.Info().Msg("Shutting down...")
}

// openStateStore opens the configured backend and returns it with a
// readiness check and a close function.
func openStateStore(
	ctx context.Context,
	cfg *config.Config,
) (repository.StateStore, server.ReadinessCheck, func(), error) {
	if cfg.StateBackend == config.BackendBolt {
		store, err := repository.NewBoltStateStore(cfg.BoltPath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Log.Info().Str("path", cfg.BoltPath).Msg("Using bbolt state store")
		return store, nil, func() { _ = store.Close() }, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Log.Info().Msg("Database initialized successfully")

	return repository.NewStateRepository(pool), pool.Ping, pool.Close, nil
}
