/**
 * @description
 * Worker Service Entry Point.
 * Runs the ingestion cycle on a fixed interval: fetches open Kalshi
 * markets, reconciles events, appends snapshots, and publishes a cycle
 * report over Redis for the API's SSE stream.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/kalshi
 * - backend/internal/services
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kalshi-pulse/backend/internal/config"
	"github.com/kalshi-pulse/backend/internal/db"
	"github.com/kalshi-pulse/backend/internal/kalshi"
	"github.com/kalshi-pulse/backend/internal/logger"
	"github.com/kalshi-pulse/backend/internal/services"
	"github.com/kalshi-pulse/backend/internal/storage"
)

func main() {
	logger.Info("🔥 Starting Kalshi Pulse Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	store := storage.NewPostgresStore(pgDB)
	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("Migrations failed: %v", err)
	}
	kalshiClient := kalshi.NewClient(cfg)
	ingestService := services.NewIngestService(store, kalshiClient, redisClient, cfg.Kalshi.PageLimit)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Ingestion Loop
	go func() {
		ticker := time.NewTicker(cfg.Kalshi.PollInterval)
		defer ticker.Stop()

		// Initial cycle
		runCycle(ctx, ingestService)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCycle(ctx, ingestService)
			}
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(1 * time.Second) // Give the in-flight cycle time to finish
	logger.Info("Worker exited.")
}

func runCycle(ctx context.Context, svc *services.IngestService) {
	report, err := svc.RunCycle(ctx)
	if err != nil {
		logger.Error("Ingestion cycle failed: %v", err)
		return
	}

	logger.Info("Cycle %s: %d events processed, %d snapshots, %d errors",
		report.CycleID, report.EventsProcessed, report.SnapshotsCreated, len(report.Errors))
	for _, e := range report.Errors {
		logger.Error("  %s: %s", e.Ticker, e.Message)
	}
}
