/**
 * @description
 * Postgres implementation of the Store interface, backed by GORM.
 * Duplicate-ticker inserts surface as apperr CONFLICT so the reconciler can
 * recover by re-reading; other write failures surface as PERSISTENCE_ERROR.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn (Postgres error codes)
 * - backend/internal/apperr
 * - backend/internal/models
 */

package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/models"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AutoMigrate creates or updates the pipeline tables
func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Event{},
		&models.MarketSnapshot{},
		&models.AIPrediction{},
	)
}

func (s *PostgresStore) FindEventByTicker(ctx context.Context, ticker string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where("ticker = ?", ticker).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("event lookup failed", err)
	}
	return &event, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Create(event).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperr.Conflict("event ticker already exists")
	}
	return apperr.Persistence("event insert failed", err)
}

func (s *PostgresStore) TouchEvent(ctx context.Context, id uint64, isActive bool) error {
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  isActive,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return apperr.Persistence("event update failed", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id uint64) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("event lookup failed", err)
	}
	return &event, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error) {
	query := s.db.WithContext(ctx).Model(&models.Event{})

	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	query = query.Order("updated_at DESC")

	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, apperr.Persistence("event listing failed", err)
	}
	return events, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("is_active = ?", true).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, apperr.Persistence("category listing failed", err)
	}
	return categories, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, eventID uint64) (*models.MarketSnapshot, error) {
	var snapshot models.MarketSnapshot
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("timestamp DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("snapshot lookup failed", err)
	}
	return &snapshot, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, eventID uint64, ascending bool, limit int) ([]models.MarketSnapshot, error) {
	order := "timestamp DESC"
	if ascending {
		order = "timestamp ASC"
	}

	query := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order(order)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var snapshots []models.MarketSnapshot
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, apperr.Persistence("snapshot listing failed", err)
	}
	return snapshots, nil
}

func (s *PostgresStore) AppendSnapshot(ctx context.Context, snapshot *models.MarketSnapshot) error {
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return apperr.Persistence("snapshot insert failed", err)
	}
	return nil
}

func (s *PostgresStore) LatestPrediction(ctx context.Context, eventID uint64) (*models.AIPrediction, error) {
	var prediction models.AIPrediction
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("timestamp DESC").
		First(&prediction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("prediction lookup failed", err)
	}
	return &prediction, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, eventID uint64, limit int) ([]models.AIPrediction, error) {
	query := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var predictions []models.AIPrediction
	if err := query.Find(&predictions).Error; err != nil {
		return nil, apperr.Persistence("prediction listing failed", err)
	}
	return predictions, nil
}

func (s *PostgresStore) AppendPrediction(ctx context.Context, prediction *models.AIPrediction) error {
	if prediction.Timestamp.IsZero() {
		prediction.Timestamp = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(prediction).Error; err != nil {
		return apperr.Persistence("prediction insert failed", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The pgx v5 driver bundled with the GORM dialector reports its own
	// PgError type; fall back to the SQLSTATE in the message.
	return strings.Contains(err.Error(), "SQLSTATE "+pgUniqueViolation)
}
