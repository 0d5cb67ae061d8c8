package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/kalshi-pulse/backend/internal/storage"
)

// fakeStore is an in-memory storage.Store for service tests. Per-method
// error hooks let tests inject failures for specific tickers or event IDs.
type fakeStore struct {
	mu sync.Mutex

	nextID      uint64
	events      map[uint64]*models.Event
	snapshots   map[uint64][]models.MarketSnapshot
	predictions map[uint64][]models.AIPrediction

	createErr   func(event *models.Event) error
	snapshotErr func(eventID uint64) error
	touchErr    func(id uint64) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      1,
		events:      map[uint64]*models.Event{},
		snapshots:   map[uint64][]models.MarketSnapshot{},
		predictions: map[uint64][]models.AIPrediction{},
	}
}

func (f *fakeStore) FindEventByTicker(_ context.Context, ticker string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Ticker == ticker {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateEvent(_ context.Context, event *models.Event) error {
	// Hook runs outside the lock so tests can re-enter the store from it.
	if f.createErr != nil {
		if err := f.createErr(event); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Ticker == event.Ticker {
			return apperr.Conflict("event with ticker already exists")
		}
	}
	event.ID = f.nextID
	f.nextID++
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeStore) TouchEvent(_ context.Context, id uint64, isActive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		if err := f.touchErr(id); err != nil {
			return err
		}
	}
	e, ok := f.events[id]
	if !ok {
		return apperr.NotFound("event not found")
	}
	e.IsActive = isActive
	return nil
}

func (f *fakeStore) GetEvent(_ context.Context, id uint64) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (f *fakeStore) ListEvents(_ context.Context, params storage.ListEventsParams) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if params.ActiveOnly && !e.IsActive {
			continue
		}
		if params.Category != "" && e.Category != params.Category {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	for _, e := range f.events {
		if e.IsActive && e.Category != "" {
			seen[e.Category] = true
		}
	}
	var out []string
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, eventID uint64) (*models.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snaps := f.snapshots[eventID]
	if len(snaps) == 0 {
		return nil, nil
	}
	copied := snaps[len(snaps)-1]
	return &copied, nil
}

func (f *fakeStore) ListSnapshots(_ context.Context, eventID uint64, ascending bool, limit int) ([]models.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snaps := f.snapshots[eventID]
	out := make([]models.MarketSnapshot, len(snaps))
	copy(out, snaps)
	if !ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) AppendSnapshot(_ context.Context, snapshot *models.MarketSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		if err := f.snapshotErr(snapshot.EventID); err != nil {
			return err
		}
	}
	snapshot.ID = f.nextID
	f.nextID++
	f.snapshots[snapshot.EventID] = append(f.snapshots[snapshot.EventID], *snapshot)
	return nil
}

func (f *fakeStore) LatestPrediction(_ context.Context, eventID uint64) (*models.AIPrediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	preds := f.predictions[eventID]
	if len(preds) == 0 {
		return nil, nil
	}
	copied := preds[len(preds)-1]
	return &copied, nil
}

func (f *fakeStore) ListPredictions(_ context.Context, eventID uint64, limit int) ([]models.AIPrediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	preds := f.predictions[eventID]
	out := make([]models.AIPrediction, len(preds))
	copy(out, preds)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) AppendPrediction(_ context.Context, prediction *models.AIPrediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prediction.ID = f.nextID
	f.nextID++
	f.predictions[prediction.EventID] = append(f.predictions[prediction.EventID], *prediction)
	return nil
}

var _ storage.Store = (*fakeStore)(nil)
