/**
 * @description
 * AI prediction database model.
 * One timestamped independent probability estimate plus derived risk status.
 * Maps to the 'event_ai_predictions' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Prediction winner values
const (
	WinnerYes = "YES"
	WinnerNo  = "NO"
)

// Prediction status labels. These are the exact strings served to the dashboard.
const (
	StatusOpportunity = "Opportunity"
	StatusBalanced    = "Balanced"
	StatusRiskZone    = "Risk Zone"
)

// AIPrediction is an append-only estimation result for one event.
// AIYesProbability is always the probability of the YES outcome, even when
// AIWinner is NO (the raw estimate is inverted before persisting).
// The market probabilities are copied from the input snapshot for auditability.
type AIPrediction struct {
	ID                   uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID              uint64    `gorm:"column:event_id;index:idx_prediction_event_time" json:"event_id"`
	MarketYesProbability float64   `gorm:"column:market_yes_probability;type:decimal(10,4)" json:"market_yes_probability"`
	MarketNoProbability  float64   `gorm:"column:market_no_probability;type:decimal(10,4)" json:"market_no_probability"`
	AIYesProbability     float64   `gorm:"column:ai_yes_probability;type:decimal(10,4)" json:"ai_yes_probability"`
	AIWinner             string    `gorm:"column:ai_winner" json:"ai_winner"`
	Status               string    `gorm:"column:status" json:"status"`
	SupportingFactors    string    `gorm:"column:insight_supporting_factors" json:"insight_supporting_factors"`
	HinderingFactors     string    `gorm:"column:insight_hindering_factors" json:"insight_hindering_factors"`
	RiskNote             string    `gorm:"column:insight_risk_note" json:"insight_risk_note"`
	Timestamp            time.Time `gorm:"column:timestamp;index:idx_prediction_event_time" json:"timestamp"`
}

// TableName overrides the table name used by AIPrediction to `event_ai_predictions`
func (AIPrediction) TableName() string {
	return "event_ai_predictions"
}
