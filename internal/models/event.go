/**
 * @description
 * Event database model.
 * One row per tracked prediction-market question, keyed by exchange ticker.
 * Maps to the 'events' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Event represents one tracked market question. The ticker is externally
// unique; the unique index backs the reconciler's conflict recovery.
type Event struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceEventID string     `gorm:"column:source_event_id" json:"source_event_id"`
	Ticker        string     `gorm:"column:ticker;uniqueIndex" json:"ticker"`
	Title         string     `gorm:"column:title" json:"title"`
	Category      string     `gorm:"column:category;index" json:"category"`
	Deadline      *time.Time `gorm:"column:deadline" json:"deadline"`
	IsActive      bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name used by Event to `events`
func (Event) TableName() string {
	return "events"
}
