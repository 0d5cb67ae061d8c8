/**
 * @description
 * Short-window momentum classification over recent snapshots.
 *
 * @dependencies
 * - backend/internal/models
 */

package services

import (
	"github.com/kalshi-pulse/backend/internal/models"
)

// Trend labels
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// DefaultTrendThreshold is the minimum average probability move (in
// percentage points) between the window's edges to call a direction.
const DefaultTrendThreshold = 5.0

// ClassifyTrend classifies momentum over a window of snapshots ordered
// newest first. It compares the mean of the two most recent snapshots with
// the mean of the two oldest in the window; fewer than 3 snapshots is
// always stable.
func ClassifyTrend(snapshots []models.MarketSnapshot, threshold float64) string {
	if threshold <= 0 {
		threshold = DefaultTrendThreshold
	}
	if len(snapshots) < 3 {
		return TrendStable
	}

	n := len(snapshots)
	recentAvg := (snapshots[0].YesProbability + snapshots[1].YesProbability) / 2
	olderAvg := (snapshots[n-2].YesProbability + snapshots[n-1].YesProbability) / 2

	switch {
	case recentAvg-olderAvg > threshold:
		return TrendRising
	case olderAvg-recentAvg > threshold:
		return TrendFalling
	default:
		return TrendStable
	}
}
