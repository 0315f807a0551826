// Command ingest consumes clicks published to JetStream by the API and
// writes them to Postgres.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gamassss/click-tracker/internal/config"
	"github.com/gamassss/click-tracker/internal/logger"
	natsRepo "github.com/gamassss/click-tracker/internal/repository/nats"
	"github.com/gamassss/click-tracker/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}

// run consumes until ctx is cancelled. Every resource it opens is released
// before it returns, on the error paths as well.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Initialize(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.Get().With("component", "ingest")

	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}
	defer dbPool.Close()

	stream, err := natsRepo.Connect(cfg.NATS)
	if err != nil {
		return fmt.Errorf("failed to setup nats: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Error("Failed to close nats connection", "error", err)
		}
	}()

	analyticsRepo := postgres.NewAnalyticsRepository(dbPool)

	sub, err := stream.Subscribe(logger.WithLogger(context.WithoutCancel(ctx), log), analyticsRepo.RecordClick, log)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	log.Info("Consuming clicks",
		"stream", cfg.NATS.Stream,
		"subject", cfg.NATS.Subject,
		"durable", cfg.NATS.Durable,
	)

	<-ctx.Done()
	log.Info("Shutdown signal received")

	if err := sub.Drain(); err != nil {
		log.Error("Failed to drain subscription", "error", err)
	}

	log.Info("Ingest stopped")
	return nil
}
