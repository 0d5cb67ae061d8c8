/**
 * @description
 * Ingestion cycle orchestrator.
 * Pulls a page of open markets from the exchange, reconciles each into a
 * persistent Event and appends a market snapshot. Markets are processed
 * independently: a failure on one is recorded in the cycle report and does
 * not abort the rest of the batch.
 *
 * @dependencies
 * - backend/internal/kalshi
 * - backend/internal/storage
 * - github.com/google/uuid
 * - github.com/redis/go-redis/v9 (cycle report pub/sub)
 */

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/kalshi"
	"github.com/kalshi-pulse/backend/internal/logger"
	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/kalshi-pulse/backend/internal/storage"
	"github.com/redis/go-redis/v9"
)

// ReportChannel is the Redis pub/sub channel carrying ingestion cycle reports
const ReportChannel = "ingest:reports"

// DefaultCategory is assigned to events whose market record carries no category
const DefaultCategory = "General"

type IngestService struct {
	Store     storage.Store
	Kalshi    *kalshi.Client
	Redis     *redis.Client // optional; nil disables report publishing
	PageLimit int
}

func NewIngestService(store storage.Store, kalshiClient *kalshi.Client, redisClient *redis.Client, pageLimit int) *IngestService {
	if pageLimit <= 0 {
		pageLimit = 50
	}
	return &IngestService{
		Store:     store,
		Kalshi:    kalshiClient,
		Redis:     redisClient,
		PageLimit: pageLimit,
	}
}

// IngestError records one market's failure within a cycle
type IngestError struct {
	Ticker  string `json:"ticker"`
	Message string `json:"message"`
}

// IngestReport summarizes one ingestion cycle
type IngestReport struct {
	CycleID          string        `json:"cycle_id"`
	EventsProcessed  int           `json:"events_processed"`
	SnapshotsCreated int           `json:"snapshots_created"`
	Errors           []IngestError `json:"errors"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
}

// RunCycle executes one ingestion cycle.
// An exchange fetch failure is fatal to the whole cycle; per-market failures
// are accumulated in the report instead of propagating.
func (s *IngestService) RunCycle(ctx context.Context) (*IngestReport, error) {
	report := &IngestReport{
		CycleID:   uuid.NewString(),
		Errors:    []IngestError{},
		StartedAt: time.Now().UTC(),
	}

	markets, err := s.Kalshi.GetMarkets(ctx, kalshi.GetMarketsParams{
		Limit:  s.PageLimit,
		Status: kalshi.StatusOpen,
	})
	if err != nil {
		return nil, apperr.Upstream("failed to fetch markets from kalshi", err)
	}

	for i := range markets {
		market := &markets[i]
		if market.Ticker == "" {
			continue
		}

		eventID, err := s.reconcileEvent(ctx, market)
		if err != nil {
			report.Errors = append(report.Errors, IngestError{
				Ticker:  market.Ticker,
				Message: err.Error(),
			})
			continue
		}
		report.EventsProcessed++

		if err := s.recordSnapshot(ctx, eventID, market.Normalize()); err != nil {
			report.Errors = append(report.Errors, IngestError{
				Ticker:  market.Ticker,
				Message: err.Error(),
			})
			continue
		}
		report.SnapshotsCreated++
	}

	report.FinishedAt = time.Now().UTC()
	s.publishReport(ctx, report)

	return report, nil
}

// reconcileEvent maps a market record to a persistent event, creating it on
// first sighting. Losing a create race with a concurrent cycle is recovered
// by re-reading the row the winner inserted.
func (s *IngestService) reconcileEvent(ctx context.Context, market *kalshi.Market) (uint64, error) {
	existing, err := s.Store.FindEventByTicker(ctx, market.Ticker)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if err := s.Store.TouchEvent(ctx, existing.ID, market.IsOpen()); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	event := newEventFromMarket(market)
	createErr := s.Store.CreateEvent(ctx, event)
	if createErr == nil {
		return event.ID, nil
	}

	if apperr.Code(createErr) == apperr.CodeConflict {
		existing, err := s.Store.FindEventByTicker(ctx, market.Ticker)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			if err := s.Store.TouchEvent(ctx, existing.ID, market.IsOpen()); err != nil {
				return 0, err
			}
			return existing.ID, nil
		}
	}

	return 0, createErr
}

// recordSnapshot appends one immutable snapshot, computing the delta against
// whatever snapshot is most recent at write time. The first snapshot of an
// event always carries a zero delta.
func (s *IngestService) recordSnapshot(ctx context.Context, eventID uint64, quote kalshi.Quote) error {
	previous, err := s.Store.LatestSnapshot(ctx, eventID)
	if err != nil {
		return err
	}

	change := 0.0
	if previous != nil {
		change = quote.YesProbability - previous.YesProbability
	}

	return s.Store.AppendSnapshot(ctx, &models.MarketSnapshot{
		EventID:        eventID,
		YesProbability: quote.YesProbability,
		NoProbability:  quote.NoProbability,
		Volume:         quote.Volume,
		Change24h:      change,
		RawPayload:     models.JSONMap(quote.Raw),
		Timestamp:      time.Now().UTC(),
	})
}

func (s *IngestService) publishReport(ctx context.Context, report *IngestReport) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.Error("Failed to marshal ingest report: %v", err)
		return
	}
	if err := s.Redis.Publish(ctx, ReportChannel, data).Err(); err != nil {
		logger.Error("Failed to publish ingest report: %v", err)
	}
}

func newEventFromMarket(market *kalshi.Market) *models.Event {
	sourceID := market.EventTicker
	if sourceID == "" {
		sourceID = market.Ticker
	}
	title := market.Title
	if title == "" {
		title = market.Ticker
	}
	category := market.Category
	if category == "" {
		category = DefaultCategory
	}
	return &models.Event{
		SourceEventID: sourceID,
		Ticker:        market.Ticker,
		Title:         title,
		Category:      category,
		Deadline:      market.Deadline(),
		IsActive:      market.IsOpen(),
		UpdatedAt:     time.Now().UTC(),
	}
}
