/**
 * @description
 * Storage collaborator contract for the ingestion and prediction pipeline.
 * Services depend on this interface; the Postgres implementation lives in
 * postgres.go and tests substitute an in-memory fake.
 *
 * @dependencies
 * - backend/internal/models
 */

package storage

import (
	"context"

	"github.com/kalshi-pulse/backend/internal/models"
)

// ListEventsParams filters the dashboard event listing
type ListEventsParams struct {
	Category   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Store is the row-store consumed by the services layer.
// Lookup methods return (nil, nil) when the row does not exist; only
// CreateEvent distinguishes a duplicate-ticker conflict (apperr CONFLICT).
// Snapshot and prediction histories are append-only; the only in-place
// mutation is TouchEvent's activity/updated_at bump.
type Store interface {
	FindEventByTicker(ctx context.Context, ticker string) (*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	TouchEvent(ctx context.Context, id uint64, isActive bool) error
	GetEvent(ctx context.Context, id uint64) (*models.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error)
	ListCategories(ctx context.Context) ([]string, error)

	LatestSnapshot(ctx context.Context, eventID uint64) (*models.MarketSnapshot, error)
	ListSnapshots(ctx context.Context, eventID uint64, ascending bool, limit int) ([]models.MarketSnapshot, error)
	AppendSnapshot(ctx context.Context, snapshot *models.MarketSnapshot) error

	LatestPrediction(ctx context.Context, eventID uint64) (*models.AIPrediction, error)
	ListPredictions(ctx context.Context, eventID uint64, limit int) ([]models.AIPrediction, error)
	AppendPrediction(ctx context.Context, prediction *models.AIPrediction) error
}
