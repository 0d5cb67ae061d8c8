/**
 * @description
 * Oracle Service.
 * Produces an independent probability estimate and risk status for an event:
 * 1. Load event + recent snapshots, classify the trend
 * 2. External strategy: structured prompt to the estimator, validated at a
 *    single boundary into the typed result
 * 3. Deterministic fallback strategy when the estimator is absent or fails
 * 4. Persist the bounded, YES-oriented prediction (append-only)
 *
 * @dependencies
 * - backend/internal/storage
 * - backend/internal/integrations/openrouter (via the Estimator interface)
 * - backend/internal/config
 */

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/config"
	"github.com/kalshi-pulse/backend/internal/logger"
	"github.com/kalshi-pulse/backend/internal/models"
	"github.com/kalshi-pulse/backend/internal/storage"
)

// Estimator is the external estimation collaborator. Absence (nil or
// unconfigured) is a valid operating mode, not an error.
type Estimator interface {
	Estimate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Configured() bool
}

type OracleService struct {
	Store     storage.Store
	Estimator Estimator
	Config    config.OracleConfig

	// jitter is swappable so tests can pin the fallback heuristic
	jitter func() float64
}

func NewOracleService(store storage.Store, estimator Estimator, cfg config.OracleConfig) *OracleService {
	if cfg.OpportunityThreshold <= 0 {
		cfg.OpportunityThreshold = 10
	}
	if cfg.VolatilityThreshold <= 0 {
		cfg.VolatilityThreshold = 10
	}
	if cfg.TrendThreshold <= 0 {
		cfg.TrendThreshold = DefaultTrendThreshold
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = 10
	}
	return &OracleService{
		Store:     store,
		Estimator: estimator,
		Config:    cfg,
		jitter:    defaultJitter,
	}
}

// estimationResult is the typed form every strategy resolves to. Probability
// is the raw estimate; orientation to YES and clamping happen once, in Predict.
type estimationResult struct {
	Winner            string
	Probability       float64
	Status            string
	SupportingFactors string
	HinderingFactors  string
	RiskNote          string
}

// Predict runs the estimation pipeline for one event and records the result.
// Without forceRefresh, a prediction younger than the freshness TTL is
// returned as-is instead of re-estimating.
func (s *OracleService) Predict(ctx context.Context, eventID uint64, forceRefresh bool) (*models.AIPrediction, error) {
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperr.NotFound("event not found")
	}

	if !forceRefresh && s.Config.FreshnessTTL > 0 {
		latest, err := s.Store.LatestPrediction(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if latest != nil && time.Since(latest.Timestamp) < s.Config.FreshnessTTL {
			return latest, nil
		}
	}

	snapshots, err := s.Store.ListSnapshots(ctx, eventID, false, s.Config.TrendWindow)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, apperr.NotFound("no market data available for event")
	}

	snapshot := snapshots[0]
	trend := ClassifyTrend(snapshots, s.Config.TrendThreshold)

	result := s.estimate(ctx, event, &snapshot, trend)

	estimate := clampProbability(result.Probability)
	aiYes := estimate
	if result.Winner == models.WinnerNo {
		aiYes = 100 - estimate
	}

	prediction := &models.AIPrediction{
		EventID:              eventID,
		MarketYesProbability: snapshot.YesProbability,
		MarketNoProbability:  snapshot.NoProbability,
		AIYesProbability:     aiYes,
		AIWinner:             result.Winner,
		Status:               result.Status,
		SupportingFactors:    result.SupportingFactors,
		HinderingFactors:     result.HinderingFactors,
		RiskNote:             result.RiskNote,
		Timestamp:            time.Now().UTC(),
	}

	if err := s.Store.AppendPrediction(ctx, prediction); err != nil {
		return nil, err
	}

	return prediction, nil
}

// estimate selects between the two strategies. Any external failure
// (transport, non-2xx, unparsable output) engages the fallback; the request
// itself never fails on account of the estimator.
func (s *OracleService) estimate(ctx context.Context, event *models.Event, snapshot *models.MarketSnapshot, trend string) estimationResult {
	if s.Estimator != nil && s.Estimator.Configured() {
		result, err := s.externalEstimate(ctx, event, snapshot, trend)
		if err == nil {
			return result
		}
		logger.Error("External estimation failed for event %d, using fallback: %v", event.ID, err)
	}
	return s.fallbackEstimate(snapshot)
}

func (s *OracleService) externalEstimate(ctx context.Context, event *models.Event, snapshot *models.MarketSnapshot, trend string) (estimationResult, error) {
	systemPrompt := "You are an expert prediction market analyst. Respond with a single valid JSON object and no markdown formatting."

	deadline := "not specified"
	if event.Deadline != nil {
		deadline = event.Deadline.Format(time.RFC3339)
	}

	prompt := fmt.Sprintf(`Analyze the following market data.
Event: %s
Market YES probability: %.2f percent
Market NO probability: %.2f percent
Volume: %.0f
Price movement 24h: %.2f percent
Historical trend: %s
Deadline: %s

Instructions:
1. Estimate the outcome probability from the data above.
2. Decide which side is more likely to win, YES or NO.
3. Justify using only the input data; if the data is insufficient, say so.
4. Choose the status:
   - "Opportunity" if your probability diverges from the market by more than %.0f percent
   - "Balanced" if your probability is close to the market (within %.0f percent)
   - "Risk Zone" if volatility is high or the data is inconsistent

Required output (JSON only, no markdown):
{
  "prediction": "YES or NO",
  "ai_probability": number 0-100,
  "status": "Opportunity or Balanced or Risk Zone",
  "supporting_factors": "short explanation",
  "hindering_factors": "short explanation",
  "risk_note": "short explanation"
}`,
		event.Title,
		snapshot.YesProbability,
		snapshot.NoProbability,
		snapshot.Volume,
		snapshot.Change24h,
		trend,
		deadline,
		s.Config.OpportunityThreshold,
		s.Config.OpportunityThreshold,
	)

	raw, err := s.Estimator.Estimate(ctx, systemPrompt, prompt)
	if err != nil {
		return estimationResult{}, apperr.Upstream("estimator call failed", err)
	}

	return parseEstimatorOutput(raw)
}

// parseEstimatorOutput is the single validation gate between the untyped
// estimator payload and the typed result all internal code operates on.
func parseEstimatorOutput(raw string) (estimationResult, error) {
	cleaned := extractJSONObject(cleanJSONFence(raw))

	var out struct {
		Prediction        string  `json:"prediction"`
		AIProbability     float64 `json:"ai_probability"`
		Status            string  `json:"status"`
		SupportingFactors string  `json:"supporting_factors"`
		HinderingFactors  string  `json:"hindering_factors"`
		RiskNote          string  `json:"risk_note"`
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return estimationResult{}, apperr.Validation("estimator returned unparsable output", err)
	}

	winner := strings.ToUpper(strings.TrimSpace(out.Prediction))
	if winner != models.WinnerYes && winner != models.WinnerNo {
		return estimationResult{}, apperr.Validation("estimator returned unknown prediction: "+out.Prediction, nil)
	}

	return estimationResult{
		Winner:            winner,
		Probability:       out.AIProbability,
		Status:            normalizeStatus(out.Status),
		SupportingFactors: textOrDefault(out.SupportingFactors, "Insufficient data"),
		HinderingFactors:  textOrDefault(out.HinderingFactors, "Insufficient data"),
		RiskNote:          textOrDefault(out.RiskNote, "Insufficient data"),
	}, nil
}

// fallbackEstimate is the deterministic strategy: nudge confident markets by
// a small jitter, agree with uncertain ones, then derive the status from the
// divergence and the 24h volatility.
func (s *OracleService) fallbackEstimate(snapshot *models.MarketSnapshot) estimationResult {
	yes := snapshot.YesProbability

	result := estimationResult{
		Winner:            models.WinnerYes,
		Probability:       yes,
		SupportingFactors: "Based on the current market-implied probability",
		HinderingFactors:  "Prediction market volatility",
		RiskNote:          "Sudden condition changes can affect the outcome",
	}

	switch {
	case yes > 60:
		result.Winner = models.WinnerYes
		result.Probability = yes + s.jitter()
	case yes < 40:
		result.Winner = models.WinnerNo
		result.Probability = yes - s.jitter()
	default:
		if yes < 50 {
			result.Winner = models.WinnerNo
		}
	}

	diff := math.Abs(result.Probability - yes)
	switch {
	case diff > s.Config.OpportunityThreshold:
		result.Status = models.StatusOpportunity
	case math.Abs(snapshot.Change24h) > s.Config.VolatilityThreshold:
		result.Status = models.StatusRiskZone
	default:
		result.Status = models.StatusBalanced
	}

	return result
}

// defaultJitter returns a value in [-2.5, 2.5)
func defaultJitter() float64 {
	return rand.Float64()*5 - 2.5
}

func clampProbability(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func cleanJSONFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject tries to pull the first top-level JSON object from a string.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return s
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opportunity":
		return models.StatusOpportunity
	case "risk zone", "riskzone", "risk_zone":
		return models.StatusRiskZone
	default:
		return models.StatusBalanced
	}
}

func textOrDefault(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}
