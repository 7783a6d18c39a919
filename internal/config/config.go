// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/etfbacktest/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Price source names accepted by PRICE_SOURCE.
const (
	PriceSourceChart    = "chart"
	PriceSourceYFinance = "yfinance"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Directory holding the SQLite cache (always absolute)
	LogLevel       string
	LogPretty      bool
	Port           int
	DevMode        bool
	AllowedOrigins []string

	PriceSource     string
	YahooBaseURL    string
	YahooRatePerSec float64
	PriceCacheTTL   time.Duration

	CacheCleanupSchedule string
	WALCheckSchedule     string

	FrontierWorkers     int
	FrontierMaxSamples  int
	RequestTimeout      time.Duration
	DefaultRiskFreeRate float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	cfg := &Config{
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", false),
		Port:           getEnvAsInt("GO_PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		AllowedOrigins: utils.SplitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		PriceSource:     strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceChart)),
		YahooBaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		YahooRatePerSec: getEnvAsFloat("YAHOO_RATE_PER_SEC", 2),
		PriceCacheTTL:   getEnvAsDuration("PRICE_CACHE_TTL", 12*time.Hour),

		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		WALCheckSchedule:     getEnv("WAL_CHECK_SCHEDULE", "0 */30 * * * *"),

		FrontierWorkers:     getEnvAsInt("FRONTIER_WORKERS", workers),
		FrontierMaxSamples:  getEnvAsInt("FRONTIER_MAX_SAMPLES", 200000),
		RequestTimeout:      getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		DefaultRiskFreeRate: getEnvAsFloat("DEFAULT_RISK_FREE_RATE", 0.02),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// CacheDBPath is the location of the price cache database.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.PriceSource != PriceSourceChart && c.PriceSource != PriceSourceYFinance {
		return fmt.Errorf("PRICE_SOURCE must be %q or %q, got %q", PriceSourceChart, PriceSourceYFinance, c.PriceSource)
	}
	if c.FrontierWorkers <= 0 {
		return fmt.Errorf("FRONTIER_WORKERS must be positive, got %d", c.FrontierWorkers)
	}
	if c.FrontierMaxSamples <= 0 {
		return fmt.Errorf("FRONTIER_MAX_SAMPLES must be positive, got %d", c.FrontierMaxSamples)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL must be positive, got %s", c.PriceCacheTTL)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"CACHE_CLEANUP_SCHEDULE": c.CacheCleanupSchedule,
		"WAL_CHECK_SCHEDULE":     c.WALCheckSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
