// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the plans database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	CORSAllowedOrigins []string

	// Plan generation
	ModelTimeout              time.Duration
	DefaultDeviationThreshold float64
	DefaultRiskAversion       float64
	PredictionCacheTTL        time.Duration

	// Market data
	MarketDataProviders []string // priority order
	ProviderRateLimit   float64  // requests per second per provider, 0 disables limiting
	ProviderBurst       int

	// Background jobs (six-field cron, seconds first)
	PlanExpirySchedule string
	PlanExpiryAge      time.Duration
	WALCheckSchedule   string
	CachePurgeSchedule string
}

// Load reads configuration from the environment, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("REBALANCER_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("GO_PORT", 8001),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		ModelTimeout:              getEnvAsDuration("MODEL_TIMEOUT", 10*time.Second),
		DefaultDeviationThreshold: getEnvAsFloat("DEFAULT_DEVIATION_THRESHOLD", 0.05),
		DefaultRiskAversion:       getEnvAsFloat("DEFAULT_RISK_AVERSION", 2.5),
		PredictionCacheTTL:        getEnvAsDuration("PREDICTION_CACHE_TTL", 15*time.Minute),

		MarketDataProviders: getEnvAsList("MARKET_DATA_PROVIDERS", []string{"mock"}),
		ProviderRateLimit:   getEnvAsFloat("PROVIDER_RATE_LIMIT", 5),
		ProviderBurst:       getEnvAsInt("PROVIDER_BURST", 10),

		PlanExpirySchedule: getEnv("PLAN_EXPIRY_SCHEDULE", "0 0 * * * *"),
		PlanExpiryAge:      getEnvAsDuration("PLAN_EXPIRY_AGE", 72*time.Hour),
		WALCheckSchedule:   getEnv("WAL_CHECK_SCHEDULE", "0 */30 * * * *"),
		CachePurgeSchedule: getEnv("CACHE_PURGE_SCHEDULE", "0 */5 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PlansDBPath returns the location of the plans database
func (c *Config) PlansDBPath() string {
	return filepath.Join(c.DataDir, "plans.db")
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d: must be between 1 and 65535", c.Port)
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be positive, got %s", c.ModelTimeout)
	}
	if c.DefaultDeviationThreshold < 0 {
		return fmt.Errorf("DEFAULT_DEVIATION_THRESHOLD must not be negative, got %v", c.DefaultDeviationThreshold)
	}
	if c.DefaultRiskAversion <= 0 {
		return fmt.Errorf("DEFAULT_RISK_AVERSION must be positive, got %v", c.DefaultRiskAversion)
	}
	if len(c.MarketDataProviders) == 0 {
		return fmt.Errorf("MARKET_DATA_PROVIDERS must name at least one provider")
	}
	if c.ProviderRateLimit < 0 || c.ProviderBurst < 0 {
		return fmt.Errorf("provider rate limit and burst must not be negative")
	}
	if c.ProviderRateLimit > 0 && c.ProviderBurst == 0 {
		return fmt.Errorf("PROVIDER_BURST must be at least 1 when rate limiting is enabled")
	}
	if c.PlanExpiryAge <= 0 {
		return fmt.Errorf("PLAN_EXPIRY_AGE must be positive, got %s", c.PlanExpiryAge)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
