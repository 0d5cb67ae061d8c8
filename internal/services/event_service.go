/**
 * @description
 * Service layer for the dashboard read path.
 * Lists events enriched with their latest snapshot + prediction, and serves
 * the event detail view (chart history + prediction history).
 * The unfiltered default listing is cached in Redis.
 *
 * @dependencies
 * - backend/internal/storage
 * - backend/internal/models
 * - github.com/redis/go-redis/v9
 */

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/logger"
	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/kalshi-pulse/backend/internal/storage"
	"github.com/redis/go-redis/v9"
)

const (
	CacheKeyEventList = "events:active"
	CacheTTL          = 5 * time.Minute

	DefaultListLimit       = 50
	chartPointLimit        = 100
	predictionHistoryLimit = 20
)

type EventService struct {
	Store storage.Store
	Redis *redis.Client // optional; nil disables listing cache
}

func NewEventService(store storage.Store, redisClient *redis.Client) *EventService {
	return &EventService{
		Store: store,
		Redis: redisClient,
	}
}

// MarketData is the snapshot view embedded in listing/detail responses
type MarketData struct {
	YesProbability float64        `json:"yes_probability"`
	NoProbability  float64        `json:"no_probability"`
	Volume         float64        `json:"volume"`
	Change24h      float64        `json:"change_24h"`
	RawPayload     models.JSONMap `json:"raw_payload,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// PredictionSummary is the condensed prediction view used in listings
type PredictionSummary struct {
	AIYesProbability float64   `json:"ai_yes_probability"`
	AIWinner         string    `json:"ai_winner"`
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
}

// EventSummary is one listing row: the event plus its latest market data and prediction
type EventSummary struct {
	models.Event
	MarketData   *MarketData        `json:"market_data"`
	AIPrediction *PredictionSummary `json:"ai_prediction"`
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type EventList struct {
	Events     []EventSummary `json:"events"`
	Total      int            `json:"total"`
	Categories []string       `json:"categories"`
	Pagination Pagination     `json:"pagination"`
}

// ChartPoint is one probability observation for the detail chart
type ChartPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	YesProbability float64   `json:"yes_probability"`
	NoProbability  float64   `json:"no_probability"`
	Volume         float64   `json:"volume"`
}

type EventDetail struct {
	Event             models.Event          `json:"event"`
	MarketData        *MarketData           `json:"market_data"`
	AIPrediction      *models.AIPrediction  `json:"ai_prediction"`
	ChartData         []ChartPoint          `json:"chart_data"`
	PredictionHistory []models.AIPrediction `json:"prediction_history"`
}

// ListEventsParams filters the dashboard listing. A status filter applies to
// the latest prediction's status and is evaluated after enrichment.
type ListEventsParams struct {
	Category string
	Status   string
	Limit    int
	Offset   int
}

// ListEvents returns active events ordered by recency, each enriched with
// its latest snapshot and prediction. The unfiltered first page is served
// from the Redis cache when possible.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) (*EventList, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultListLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	if params.Category == "all" {
		params.Category = ""
	}
	if params.Status == "all" {
		params.Status = ""
	}

	cacheable := s.Redis != nil &&
		params.Category == "" && params.Status == "" &&
		params.Limit == DefaultListLimit && params.Offset == 0

	if cacheable {
		if val, err := s.Redis.Get(ctx, CacheKeyEventList).Result(); err == nil {
			var cached EventList
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
			// If unmarshal fails, fall through to the store
		}
	}

	events, err := s.Store.ListEvents(ctx, storage.ListEventsParams{
		ActiveOnly: true,
		Category:   params.Category,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		snapshot, err := s.Store.LatestSnapshot(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		prediction, err := s.Store.LatestPrediction(ctx, event.ID)
		if err != nil {
			return nil, err
		}

		summary := EventSummary{Event: event}
		if snapshot != nil {
			// The raw exchange payload is detail-only; listings stay lean.
			summary.MarketData = &MarketData{
				YesProbability: snapshot.YesProbability,
				NoProbability:  snapshot.NoProbability,
				Volume:         snapshot.Volume,
				Change24h:      snapshot.Change24h,
				Timestamp:      snapshot.Timestamp,
			}
		}
		if prediction != nil {
			summary.AIPrediction = &PredictionSummary{
				AIYesProbability: prediction.AIYesProbability,
				AIWinner:         prediction.AIWinner,
				Status:           prediction.Status,
				Timestamp:        prediction.Timestamp,
			}
		}

		if params.Status != "" {
			if summary.AIPrediction == nil || summary.AIPrediction.Status != params.Status {
				continue
			}
		}

		summaries = append(summaries, summary)
	}

	categories, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	list := &EventList{
		Events:     summaries,
		Total:      len(summaries),
		Categories: categories,
		Pagination: Pagination{
			Limit:   params.Limit,
			Offset:  params.Offset,
			HasMore: len(events) == params.Limit,
		},
	}

	if cacheable {
		if data, err := json.Marshal(list); err == nil {
			if err := s.Redis.Set(ctx, CacheKeyEventList, data, CacheTTL).Err(); err != nil {
				logger.Error("Failed to cache event listing: %v", err)
			}
		}
	}

	return list, nil
}

// GetEventDetail returns one event with its latest snapshot (raw payload
// included), latest prediction, chart history and prediction history.
func (s *EventService) GetEventDetail(ctx context.Context, eventID uint64) (*EventDetail, error) {
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperr.NotFound("event not found")
	}

	chartSnapshots, err := s.Store.ListSnapshots(ctx, eventID, true, chartPointLimit)
	if err != nil {
		return nil, err
	}
	latest, err := s.Store.LatestSnapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	prediction, err := s.Store.LatestPrediction(ctx, eventID)
	if err != nil {
		return nil, err
	}
	history, err := s.Store.ListPredictions(ctx, eventID, predictionHistoryLimit)
	if err != nil {
		return nil, err
	}

	detail := &EventDetail{
		Event:             *event,
		AIPrediction:      prediction,
		PredictionHistory: history,
	}

	if latest != nil {
		detail.MarketData = &MarketData{
			YesProbability: latest.YesProbability,
			NoProbability:  latest.NoProbability,
			Volume:         latest.Volume,
			Change24h:      latest.Change24h,
			RawPayload:     latest.RawPayload,
			Timestamp:      latest.Timestamp,
		}
	}

	detail.ChartData = make([]ChartPoint, 0, len(chartSnapshots))
	for _, snap := range chartSnapshots {
		detail.ChartData = append(detail.ChartData, ChartPoint{
			Timestamp:      snap.Timestamp,
			YesProbability: snap.YesProbability,
			NoProbability:  snap.NoProbability,
			Volume:         snap.Volume,
		})
	}

	return detail, nil
}
