/**
 * @description
 * Market snapshot database model.
 * One timestamped observation of market-implied probabilities and volume.
 * Maps to the 'event_market_snapshots' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// MarketSnapshot is an append-only observation of one event's market state.
// Rows are immutable once written; change_24h is computed once at write time
// against whatever snapshot was most recent at that moment.
type MarketSnapshot struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID        uint64    `gorm:"column:event_id;index:idx_snapshot_event_time" json:"event_id"`
	YesProbability float64   `gorm:"column:yes_probability;type:decimal(10,4)" json:"yes_probability"`
	NoProbability  float64   `gorm:"column:no_probability;type:decimal(10,4)" json:"no_probability"`
	Volume         float64   `gorm:"column:volume;type:decimal(20,4)" json:"volume"`
	Change24h      float64   `gorm:"column:change_24h;type:decimal(10,4)" json:"change_24h"`
	RawPayload     JSONMap   `gorm:"column:raw_payload;type:jsonb" json:"raw_payload,omitempty"`
	Timestamp      time.Time `gorm:"column:timestamp;index:idx_snapshot_event_time" json:"timestamp"`
}

// TableName overrides the table name used by MarketSnapshot to `event_market_snapshots`
func (MarketSnapshot) TableName() string {
	return "event_market_snapshots"
}
