package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_DIR", "LOG_LEVEL", "LOG_PRETTY", "GO_PORT", "DEV_MODE", "CORS_ALLOWED_ORIGINS",
		"PRICE_SOURCE", "YAHOO_BASE_URL", "YAHOO_RATE_PER_SEC", "PRICE_CACHE_TTL",
		"CACHE_CLEANUP_SCHEDULE", "WAL_CHECK_SCHEDULE", "FRONTIER_WORKERS",
		"FRONTIER_MAX_SAMPLES", "REQUEST_TIMEOUT", "DEFAULT_RISK_FREE_RATE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv("DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "cache.db"), cfg.CacheDBPath())
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, PriceSourceChart, cfg.PriceSource)
	assert.Equal(t, "https://query1.finance.yahoo.com", cfg.YahooBaseURL)
	assert.Equal(t, 2.0, cfg.YahooRatePerSec)
	assert.Equal(t, 12*time.Hour, cfg.PriceCacheTTL)
	assert.Equal(t, "0 0 3 * * *", cfg.CacheCleanupSchedule)
	assert.GreaterOrEqual(t, cfg.FrontierWorkers, 2)
	assert.Equal(t, 200000, cfg.FrontierMaxSamples)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 0.02, cfg.DefaultRiskFreeRate)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("DEV_MODE", "1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://127.0.0.1:5173")
	t.Setenv("PRICE_SOURCE", "YFinance")
	t.Setenv("PRICE_CACHE_TTL", "30m")
	t.Setenv("FRONTIER_WORKERS", "3")
	t.Setenv("FRONTIER_MAX_SAMPLES", "1000")
	t.Setenv("REQUEST_TIMEOUT", "2m")
	t.Setenv("DEFAULT_RISK_FREE_RATE", "0.035")
	t.Setenv("YAHOO_RATE_PER_SEC", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.LogPretty)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, PriceSourceYFinance, cfg.PriceSource)
	assert.Equal(t, 30*time.Minute, cfg.PriceCacheTTL)
	assert.Equal(t, 3, cfg.FrontierWorkers)
	assert.Equal(t, 1000, cfg.FrontierMaxSamples)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 0.035, cfg.DefaultRiskFreeRate)
	// unparsable values fall back to the default
	assert.Equal(t, 2.0, cfg.YahooRatePerSec)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port", "GO_PORT", "70000"},
		{"price source", "PRICE_SOURCE", "bloomberg"},
		{"workers", "FRONTIER_WORKERS", "0"},
		{"max samples", "FRONTIER_MAX_SAMPLES", "-1"},
		{"timeout", "REQUEST_TIMEOUT", "-5s"},
		{"ttl", "PRICE_CACHE_TTL", "-1h"},
		{"schedule", "CACHE_CLEANUP_SCHEDULE", "every day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
