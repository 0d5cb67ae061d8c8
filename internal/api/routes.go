/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/services
 * - backend/internal/kalshi
 * - backend/internal/integrations/openrouter
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kalshi-pulse/backend/internal/api/handlers"
	"github.com/kalshi-pulse/backend/internal/config"
	"github.com/kalshi-pulse/backend/internal/integrations/openrouter"
	"github.com/kalshi-pulse/backend/internal/kalshi"
	"github.com/kalshi-pulse/backend/internal/services"
	"github.com/kalshi-pulse/backend/internal/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Collaborators
	store := storage.NewPostgresStore(db)
	kalshiClient := kalshi.NewClient(cfg)
	estimator := openrouter.NewClient(cfg)

	// 2. Initialize Services
	eventService := services.NewEventService(store, rdb)
	oracleService := services.NewOracleService(store, estimator, cfg.Oracle)
	ingestService := services.NewIngestService(store, kalshiClient, rdb, cfg.Kalshi.PageLimit)

	// 3. Initialize Handlers
	eventHandler := handlers.NewEventHandler(eventService)
	oracleHandler := handlers.NewOracleHandler(oracleService)
	ingestHandler := handlers.NewIngestHandler(ingestService, cfg.Jobs.IngestSecret)

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Dashboard read surface (public)
	v1.Get("/events", eventHandler.ListEvents)
	events := v1.Group("/events")
	events.Get("/stream", eventHandler.StreamReports)
	events.Get("/:id", eventHandler.GetEventDetail)
	events.Post("/:id/predict", oracleHandler.Predict)

	// Operational trigger (shared-secret guarded)
	v1.Post("/ingest", ingestHandler.TriggerIngest)
}
