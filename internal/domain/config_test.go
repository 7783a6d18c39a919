package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() BacktestConfig {
	return BacktestConfig{
		Start:             time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:               time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		InitialInvestment: 10000,
		Frequency:         RebalanceQuarterly,
		TransactionCost:   0.001,
	}
}

func TestBacktestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *BacktestConfig)
		field  string
	}{
		{"valid", func(c *BacktestConfig) {}, ""},
		{"same day window", func(c *BacktestConfig) { c.End = c.Start }, ""},
		{"end before start", func(c *BacktestConfig) { c.End = c.Start.AddDate(0, 0, -1) }, "end_date"},
		{"zero investment", func(c *BacktestConfig) { c.InitialInvestment = 0 }, "initial_investment"},
		{"negative investment", func(c *BacktestConfig) { c.InitialInvestment = -5 }, "initial_investment"},
		{"unknown frequency", func(c *BacktestConfig) { c.Frequency = RebalanceFrequency(9) }, "rebalance_frequency"},
		{"negative cost", func(c *BacktestConfig) { c.TransactionCost = -0.01 }, "transaction_cost"},
		{"missing dates", func(c *BacktestConfig) { c.Start = time.Time{} }, "date_range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var cerr *InvalidConfigError
			if assert.True(t, errors.As(err, &cerr)) {
				assert.Equal(t, tt.field, cerr.Field)
			}
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, errors.Is(&InsufficientDataError{Ticker: "VTI", Reason: "no rows"}, ErrInsufficientData))
	assert.True(t, errors.Is(&InsufficientUniverseError{Assets: 1}, ErrInsufficientUniverse))
	assert.False(t, IsValidationError(&InsufficientDataError{Reason: "short"}))
	assert.Contains(t, (&InsufficientDataError{Ticker: "VTI", Reason: "no rows"}).Error(), "VTI")
}
