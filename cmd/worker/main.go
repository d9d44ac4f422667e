// Package main is the entrypoint for the CopyForge worker. It consumes
// generation tasks from the queue and runs the retention sweeper.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/kiranshivaraju/copyforge/internal/ai"
	"github.com/kiranshivaraju/copyforge/internal/cache"
	"github.com/kiranshivaraju/copyforge/internal/compose"
	"github.com/kiranshivaraju/copyforge/internal/config"
	"github.com/kiranshivaraju/copyforge/internal/jobs"
	"github.com/kiranshivaraju/copyforge/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "concurrency", cfg.Queue.Concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	pgStore := store.NewPostgresStore(pool)
	composer := compose.NewComposer(aiProvider, pgStore, cfg.AI.InferenceTimeout)

	scheduler, err := jobs.NewAsynqScheduler(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	defer scheduler.Close()

	coordinator := jobs.NewCoordinator(pgStore, scheduler, redisCache, logger)
	retry := jobs.NewRetryController(pgStore, scheduler, logger)
	notifier := jobs.NewLogNotifier(logger)
	processor := jobs.NewProcessor(pgStore, composer, coordinator, retry, redisCache, notifier, logger)

	// Retention sweeper runs alongside the queue consumer.
	sweeper := jobs.NewSweeper(pgStore, logger)
	go sweeper.Run(ctx)

	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("worker consuming tasks", "concurrency", cfg.Queue.Concurrency)
		if err := srv.Run(jobs.NewMux(processor)); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("queue server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping worker...")
	}

	srv.Shutdown()
	slog.Info("worker stopped gracefully")
	return nil
}
