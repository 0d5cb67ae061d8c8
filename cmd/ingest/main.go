package main

import (
	"context"
	"log"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/kalshi-pulse/backend/internal/config"
	"github.com/kalshi-pulse/backend/internal/db"
	"github.com/kalshi-pulse/backend/internal/kalshi"
	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/kalshi-pulse/backend/internal/services"
	"github.com/kalshi-pulse/backend/internal/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting manual ingestion cycle from Kalshi...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("failed to start in-memory redis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewPostgresStore(pgDB)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	kalshiClient := kalshi.NewClient(cfg)
	service := services.NewIngestService(store, kalshiClient, redisClient, cfg.Kalshi.PageLimit)

	ctx := context.Background()

	report, err := service.RunCycle(ctx)
	if err != nil {
		log.Fatalf("ingestion cycle failed: %v", err)
	}

	for _, e := range report.Errors {
		log.Printf("⚠️ %s: %s", e.Ticker, e.Message)
	}

	var activeCount int64
	if err := pgDB.Model(&models.Event{}).Where("is_active = ?", true).Count(&activeCount).Error; err == nil {
		log.Printf("✅ Active events stored in Postgres: %d", activeCount)
	} else {
		log.Printf("⚠️ Failed to count active events: %v", err)
	}

	log.Printf("✅ Cycle %s completed: %d events, %d snapshots.",
		report.CycleID, report.EventsProcessed, report.SnapshotsCreated)
}
