package services

import (
	"testing"

	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func snapshotsWithYes(values ...float64) []models.MarketSnapshot {
	out := make([]models.MarketSnapshot, len(values))
	for i, v := range values {
		out[i] = models.MarketSnapshot{YesProbability: v}
	}
	return out
}

func TestClassifyTrendTooFewSnapshots(t *testing.T) {
	assert.Equal(t, TrendStable, ClassifyTrend(nil, 5))
	assert.Equal(t, TrendStable, ClassifyTrend(snapshotsWithYes(80), 5))
	assert.Equal(t, TrendStable, ClassifyTrend(snapshotsWithYes(80, 20), 5))
}

func TestClassifyTrendRising(t *testing.T) {
	// Newest first: recent avg 56.5, older avg 51 -> +5.5
	assert.Equal(t, TrendRising, ClassifyTrend(snapshotsWithYes(61, 52, 50), 5))
}

func TestClassifyTrendFalling(t *testing.T) {
	assert.Equal(t, TrendFalling, ClassifyTrend(snapshotsWithYes(40, 45, 55, 58), 5))
}

func TestClassifyTrendStableAtThreshold(t *testing.T) {
	// Exactly a 5-point move is not strictly greater than the threshold
	assert.Equal(t, TrendStable, ClassifyTrend(snapshotsWithYes(55, 55, 50, 50), 5))
}

func TestClassifyTrendUsesWindowEdges(t *testing.T) {
	// Noise in the middle of the window does not affect the classification
	assert.Equal(t, TrendRising, ClassifyTrend(snapshotsWithYes(70, 70, 10, 90, 50, 50), 5))
}

func TestClassifyTrendDefaultThreshold(t *testing.T) {
	// threshold <= 0 falls back to the default of 5
	assert.Equal(t, TrendStable, ClassifyTrend(snapshotsWithYes(54, 54, 50, 50), 0))
	assert.Equal(t, TrendRising, ClassifyTrend(snapshotsWithYes(60, 60, 50, 50), 0))
}
