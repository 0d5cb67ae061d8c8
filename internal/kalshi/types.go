/**
 * @description
 * Type definitions for the Kalshi trade API responses, and the quote
 * normalizer that converts raw market records into the canonical shape
 * the ingestion pipeline operates on.
 */

package kalshi

import (
	"time"
)

// Market status values used by the trade API
const (
	StatusOpen = "open"
)

// Market represents one market record from GET /markets.
// Prices are quoted in cents, which doubles as a 0-100 probability.
type Market struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	Status       string  `json:"status"`
	CloseTime    string  `json:"close_time"` // ISO string
	YesBid       float64 `json:"yes_bid"`
	YesAsk       float64 `json:"yes_ask"`
	NoBid        float64 `json:"no_bid"`
	NoAsk        float64 `json:"no_ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"open_interest"`
}

// MarketsResponse is the envelope returned by GET /markets
type MarketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// Quote is the normalized view of a market record.
// YesProbability + NoProbability is always exactly 100.
type Quote struct {
	YesProbability float64
	NoProbability  float64
	Volume         float64
	Raw            map[string]interface{}
}

// Normalize converts a raw market record into a Quote.
// The yes probability is the bid/ask midpoint when both sides are quoted,
// falling back to the last traded price, then to 50. No clamping happens
// here; values are persisted as-is downstream.
func (m *Market) Normalize() Quote {
	yes := 50.0
	if m.YesBid > 0 && m.YesAsk > 0 {
		yes = (m.YesBid + m.YesAsk) / 2
	} else if m.LastPrice > 0 {
		yes = m.LastPrice
	}

	return Quote{
		YesProbability: yes,
		NoProbability:  100 - yes,
		Volume:         m.Volume,
		Raw: map[string]interface{}{
			"ticker":        m.Ticker,
			"yes_bid":       m.YesBid,
			"yes_ask":       m.YesAsk,
			"no_bid":        m.NoBid,
			"no_ask":        m.NoAsk,
			"last_price":    m.LastPrice,
			"open_interest": m.OpenInterest,
			"status":        m.Status,
		},
	}
}

// Deadline parses the market's close time. Returns nil if absent or malformed.
func (m *Market) Deadline() *time.Time {
	if m.CloseTime == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		return &t
	}
	return nil
}

// IsOpen reports whether the market is still trading
func (m *Market) IsOpen() bool {
	return m.Status == StatusOpen
}
