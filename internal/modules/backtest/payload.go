package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
)

// Defaults applied to fields a payload leaves out.
const (
	DefaultStartDate          = "2010-01-01"
	DefaultInitialInvestment  = 10000.0
	DefaultRebalanceFrequency = "quarterly"
	DefaultTransactionCost    = 0.001
	DefaultRiskFreeRate       = 0.02
)

// TERLookup returns a default TER in percent for tickers a payload sends without one.
type TERLookup interface {
	TER(ticker string) (float64, bool)
}

// AssetInput is one ETF as sent by clients. TER is in percent (0.07 = 0.07%).
type AssetInput struct {
	Name   string   `json:"name" yaml:"name"`
	Weight float64  `json:"weight" yaml:"weight"`
	TER    *float64 `json:"ter,omitempty" yaml:"ter,omitempty"`
}

// ConfigInput is the optional config block of a backtest payload.
type ConfigInput struct {
	StartDate          string   `json:"start_date" yaml:"start_date"`
	EndDate            string   `json:"end_date" yaml:"end_date"`
	InitialInvestment  *float64 `json:"initial_investment,omitempty" yaml:"initial_investment,omitempty"`
	RebalanceFrequency string   `json:"rebalance_frequency" yaml:"rebalance_frequency"`
	TransactionCost    *float64 `json:"transaction_cost,omitempty" yaml:"transaction_cost,omitempty"`
	ReinvestDividends  *bool    `json:"reinvest_dividends,omitempty" yaml:"reinvest_dividends,omitempty"`
	RiskFreeRate       *float64 `json:"risk_free_rate,omitempty" yaml:"risk_free_rate,omitempty"`
}

// Payload is the body of POST /api/backtest.
type Payload struct {
	ETFs      []AssetInput `json:"etfs" yaml:"etfs"`
	Benchmark []AssetInput `json:"benchmark" yaml:"benchmark"`
	Config    ConfigInput  `json:"config" yaml:"config"`
}

// PayloadDefaults carries the environment-dependent defaults.
type PayloadDefaults struct {
	Now          time.Time
	RiskFreeRate float64
	TERs         TERLookup // may be nil
}

// Request converts the payload into a validated service request.
func (p Payload) Request(d PayloadDefaults) (Request, error) {
	portfolio, err := domain.NewPortfolio(AssetSpecs(p.ETFs, d.TERs))
	if err != nil {
		return Request{}, fmt.Errorf("etfs: %w", err)
	}
	benchmark, err := domain.NewPortfolio(AssetSpecs(p.Benchmark, d.TERs))
	if err != nil {
		return Request{}, fmt.Errorf("benchmark: %w", err)
	}

	start, end, err := ParseWindow(p.Config.StartDate, p.Config.EndDate, d.Now)
	if err != nil {
		return Request{}, err
	}

	name := p.Config.RebalanceFrequency
	if strings.TrimSpace(name) == "" {
		name = DefaultRebalanceFrequency
	}
	freq, err := domain.ParseRebalanceFrequency(name)
	if err != nil {
		return Request{}, err
	}

	rf := d.RiskFreeRate
	if p.Config.RiskFreeRate != nil {
		rf = *p.Config.RiskFreeRate
	}

	cfg := domain.BacktestConfig{
		Start:             start,
		End:               end,
		InitialInvestment: valueOr(p.Config.InitialInvestment, DefaultInitialInvestment),
		Frequency:         freq,
		TransactionCost:   valueOr(p.Config.TransactionCost, DefaultTransactionCost),
		ReinvestDividends: valueOr(p.Config.ReinvestDividends, true),
		RiskFreeRate:      rf,
	}
	if err := cfg.Validate(); err != nil {
		return Request{}, err
	}

	return Request{Portfolio: portfolio, Benchmark: benchmark, Config: cfg}, nil
}

// AssetSpecs converts client assets to domain specs, turning percent TERs into
// fractions. A missing TER falls back to lookup, then to 0.
func AssetSpecs(in []AssetInput, lookup TERLookup) []domain.AssetSpec {
	specs := make([]domain.AssetSpec, len(in))
	for i, a := range in {
		ter := 0.0
		switch {
		case a.TER != nil:
			ter = *a.TER
		case lookup != nil:
			if v, ok := lookup.TER(strings.ToUpper(strings.TrimSpace(a.Name))); ok {
				ter = v
			}
		}
		specs[i] = domain.AssetSpec{Ticker: a.Name, Weight: a.Weight, TER: ter / 100}
	}
	return specs
}

// ParseWindow parses a YYYY-MM-DD window. An empty start means DefaultStartDate and
// an empty end means the day of now.
func ParseWindow(startDate, endDate string, now time.Time) (time.Time, time.Time, error) {
	if strings.TrimSpace(startDate) == "" {
		startDate = DefaultStartDate
	}
	start, err := parseDate("start_date", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end := domain.TruncateDay(now.UTC())
	if strings.TrimSpace(endDate) != "" {
		if end, err = parseDate("end_date", endDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &domain.InvalidConfigError{
			Field:  "end_date",
			Reason: fmt.Sprintf("end date %s is before start date %s", end.Format(domain.DateLayout), start.Format(domain.DateLayout)),
		}
	}
	return start, end, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &domain.InvalidConfigError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return t, nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
