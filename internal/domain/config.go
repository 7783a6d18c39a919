package domain

import (
	"fmt"
	"math"
	"time"
)

// BacktestConfig controls one simulation run. Portfolio and benchmark share it.
type BacktestConfig struct {
	Start             time.Time
	End               time.Time
	InitialInvestment float64
	Frequency         RebalanceFrequency
	TransactionCost   float64 // fraction of traded value
	ReinvestDividends bool
	RiskFreeRate      float64 // annual, used by Sharpe and Sortino
}

// Validate checks the config before any data is fetched.
func (c BacktestConfig) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return &InvalidConfigError{Field: "date_range", Reason: "start and end dates are required"}
	}
	if c.End.Before(c.Start) {
		return &InvalidConfigError{
			Field:  "end_date",
			Reason: fmt.Sprintf("end date %s is before start date %s", c.End.Format(DateLayout), c.Start.Format(DateLayout)),
		}
	}
	if math.IsNaN(c.InitialInvestment) || math.IsInf(c.InitialInvestment, 0) || c.InitialInvestment <= 0 {
		return &InvalidConfigError{Field: "initial_investment", Reason: "must be greater than 0"}
	}
	if !c.Frequency.Valid() {
		return &InvalidConfigError{Field: "rebalance_frequency", Reason: fmt.Sprintf("unknown frequency %d", int(c.Frequency))}
	}
	if math.IsNaN(c.TransactionCost) || c.TransactionCost < 0 || c.TransactionCost >= 1 {
		return &InvalidConfigError{Field: "transaction_cost", Reason: "must be in [0, 1)"}
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return &InvalidConfigError{Field: "risk_free_rate", Reason: "must be a finite number"}
	}
	return nil
}
