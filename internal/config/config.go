/**
 * @description
 * Configuration loader for the Kalshi Pulse backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL) are missing.
 * - Running without an estimator API key is a supported mode: the oracle
 *   falls back to its deterministic heuristic.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Kalshi KalshiConfig
	Oracle OracleConfig
	Jobs   JobsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// KalshiConfig holds exchange API settings for market ingestion
type KalshiConfig struct {
	BaseURL      string
	PageLimit    int
	PollInterval time.Duration
}

// OracleConfig holds estimator credentials and classification thresholds.
// The thresholds default to the values the dashboard was calibrated with,
// but are deliberately overridable per environment.
type OracleConfig struct {
	OpenRouterAPIKey     string
	OpenRouterBaseURL    string
	OpenRouterModel      string
	OpportunityThreshold float64 // min |estimate - market| for "Opportunity"
	VolatilityThreshold  float64 // min |change_24h| for "Risk Zone"
	TrendThreshold       float64 // min avg move for rising/falling
	TrendWindow          int     // snapshots inspected for trend
	FreshnessTTL         time.Duration
}

// JobsConfig holds shared secrets for operational endpoints
type JobsConfig struct {
	IngestSecret string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Kalshi: KalshiConfig{
			BaseURL:      getEnv("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
			PageLimit:    getEnvAsInt("KALSHI_PAGE_LIMIT", 50),
			PollInterval: time.Duration(getEnvAsInt("INGEST_POLL_SECONDS", 300)) * time.Second,
		},
		Oracle: OracleConfig{
			OpenRouterAPIKey:     sanitizeCredential(getEnv("OPENROUTER_API_KEY", "")),
			OpenRouterBaseURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1/chat/completions"),
			OpenRouterModel:      getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
			OpportunityThreshold: getEnvAsFloat("ORACLE_OPPORTUNITY_THRESHOLD", 10),
			VolatilityThreshold:  getEnvAsFloat("ORACLE_VOLATILITY_THRESHOLD", 10),
			TrendThreshold:       getEnvAsFloat("ORACLE_TREND_THRESHOLD", 5),
			TrendWindow:          getEnvAsInt("ORACLE_TREND_WINDOW", 10),
			FreshnessTTL:         time.Duration(getEnvAsInt("ORACLE_FRESHNESS_SECONDS", 900)) * time.Second,
		},
		Jobs: JobsConfig{
			IngestSecret: sanitizeCredential(getEnv("JOB_INGEST_SECRET", "")),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Kalshi.PageLimit <= 0 {
		return fmt.Errorf("KALSHI_PAGE_LIMIT must be positive")
	}
	if cfg.Oracle.OpenRouterAPIKey == "" && cfg.Server.Env != "test" {
		fmt.Println("Warning: OPENROUTER_API_KEY is missing. Predictions will use the deterministic fallback only.")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper to get env var as float
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}
