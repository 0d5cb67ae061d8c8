package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/kalshi"
	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/kalshi-pulse/backend/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExchange(t *testing.T, markets []kalshi.Market) *kalshi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(kalshi.MarketsResponse{Markets: markets})
	}))
	t.Cleanup(srv.Close)
	return &kalshi.Client{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}
}

func openMarket(ticker string, yesBid, yesAsk float64) kalshi.Market {
	return kalshi.Market{
		Ticker:      ticker,
		EventTicker: ticker + "-EV",
		Title:       "Market " + ticker,
		Category:    "Economics",
		Status:      kalshi.StatusOpen,
		YesBid:      yesBid,
		YesAsk:      yesAsk,
		Volume:      500,
	}
}

func TestRunCycleCreatesEventsAndSnapshots(t *testing.T) {
	store := newFakeStore()
	client := newExchange(t, []kalshi.Market{
		openMarket("FED-25DEC", 40, 42),
		openMarket("CPI-26JAN", 60, 64),
	})
	svc := NewIngestService(store, client, nil, 50)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.EventsProcessed)
	assert.Equal(t, 2, report.SnapshotsCreated)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, report.CycleID)

	event, err := store.FindEventByTicker(context.Background(), "FED-25DEC")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "FED-25DEC-EV", event.SourceEventID)
	assert.Equal(t, "Economics", event.Category)
	assert.True(t, event.IsActive)

	snap, err := store.LatestSnapshot(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 41.0, snap.YesProbability)
	assert.Equal(t, 59.0, snap.NoProbability)
	assert.Equal(t, 0.0, snap.Change24h) // first snapshot carries no delta
}

func TestRunCycleIdempotentReconcile(t *testing.T) {
	store := newFakeStore()
	client := newExchange(t, []kalshi.Market{openMarket("FED-25DEC", 40, 42)})
	svc := NewIngestService(store, client, nil, 50)

	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	_, err = svc.RunCycle(context.Background())
	require.NoError(t, err)

	events, err := store.ListEvents(context.Background(), storage.ListEventsParams{})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	snaps, err := store.ListSnapshots(context.Background(), events[0].ID, true, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestRunCycleSnapshotDelta(t *testing.T) {
	store := newFakeStore()
	svc := NewIngestService(store, newExchange(t, []kalshi.Market{openMarket("FED-25DEC", 40, 42)}), nil, 50)
	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	// Second cycle sees the market at a higher price
	svc = NewIngestService(store, newExchange(t, []kalshi.Market{openMarket("FED-25DEC", 48, 50)}), nil, 50)
	_, err = svc.RunCycle(context.Background())
	require.NoError(t, err)

	event, err := store.FindEventByTicker(context.Background(), "FED-25DEC")
	require.NoError(t, err)
	snap, err := store.LatestSnapshot(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 49.0, snap.YesProbability)
	assert.Equal(t, 8.0, snap.Change24h)
}

func TestRunCycleMarketFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.createErr = func(event *models.Event) error {
		if event.Ticker == "BAD-TICKER" {
			return apperr.Persistence("insert failed", nil)
		}
		return nil
	}
	client := newExchange(t, []kalshi.Market{
		openMarket("A-1", 40, 42),
		openMarket("BAD-TICKER", 50, 52),
		openMarket("C-3", 60, 62),
	})
	svc := NewIngestService(store, client, nil, 50)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.EventsProcessed)
	assert.Equal(t, 2, report.SnapshotsCreated)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "BAD-TICKER", report.Errors[0].Ticker)
}

func TestRunCycleSnapshotFailureStillCountsEvent(t *testing.T) {
	store := newFakeStore()
	store.snapshotErr = func(uint64) error {
		return apperr.Persistence("insert failed", nil)
	}
	svc := NewIngestService(store, newExchange(t, []kalshi.Market{openMarket("FED-25DEC", 40, 42)}), nil, 50)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.EventsProcessed)
	assert.Equal(t, 0, report.SnapshotsCreated)
	assert.Len(t, report.Errors, 1)
}

func TestRunCycleSkipsBlankTickers(t *testing.T) {
	store := newFakeStore()
	client := newExchange(t, []kalshi.Market{
		{Status: kalshi.StatusOpen}, // no ticker
		openMarket("FED-25DEC", 40, 42),
	})
	svc := NewIngestService(store, client, nil, 50)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventsProcessed)
	assert.Empty(t, report.Errors)
}

func TestRunCycleConflictRecovery(t *testing.T) {
	store := newFakeStore()
	raced := false
	store.createErr = func(event *models.Event) error {
		if !raced {
			raced = true
			// Simulate a concurrent cycle winning the insert race
			winner := *event
			require.NoError(t, store.CreateEvent(context.Background(), &winner))
			return apperr.Conflict("event with ticker already exists")
		}
		return nil
	}
	svc := NewIngestService(store, newExchange(t, []kalshi.Market{openMarket("FED-25DEC", 40, 42)}), nil, 50)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.EventsProcessed)
	assert.Equal(t, 1, report.SnapshotsCreated)
	assert.Empty(t, report.Errors)
}

func TestRunCycleExchangeDownIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &kalshi.Client{BaseURL: srv.URL, HTTPClient: &http.Client{Timeout: 2 * time.Second}}
	svc := NewIngestService(newFakeStore(), client, nil, 50)

	_, err := svc.RunCycle(context.Background())
	assert.Equal(t, apperr.CodeUpstream, apperr.Code(err))
}

func TestRunCyclePublishesReport(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	sub := redisClient.Subscribe(context.Background(), ReportChannel)
	defer sub.Close()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	store := newFakeStore()
	svc := NewIngestService(store, newExchange(t, []kalshi.Market{openMarket("FED-25DEC", 40, 42)}), redisClient, 50)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var published IngestReport
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &published))
		assert.Equal(t, report.CycleID, published.CycleID)
		assert.Equal(t, 1, published.EventsProcessed)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingest report")
	}
}

func TestNewEventFromMarketDefaults(t *testing.T) {
	event := newEventFromMarket(&kalshi.Market{Ticker: "FED-25DEC", Status: kalshi.StatusOpen})

	assert.Equal(t, "FED-25DEC", event.SourceEventID)
	assert.Equal(t, "FED-25DEC", event.Title)
	assert.Equal(t, DefaultCategory, event.Category)
	assert.Nil(t, event.Deadline)
	assert.True(t, event.IsActive)
}
