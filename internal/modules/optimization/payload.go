package optimization

import (
	"fmt"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
)

// DefaultSamples is the sample count used when a payload leaves num_portfolios out.
const DefaultSamples = 50000

// ConfigInput is the optional config block of a frontier payload.
type ConfigInput struct {
	StartDate              string   `json:"start_date" yaml:"start_date"`
	EndDate                string   `json:"end_date" yaml:"end_date"`
	NumPortfolios          *int     `json:"num_portfolios,omitempty" yaml:"num_portfolios,omitempty"`
	RiskFreeRate           *float64 `json:"risk_free_rate,omitempty" yaml:"risk_free_rate,omitempty"`
	NumEfficientPortfolios *int     `json:"num_efficient_portfolios,omitempty" yaml:"num_efficient_portfolios,omitempty"`
	Seed                   *uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Distribution           string   `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	IncludeCloud           bool     `json:"include_cloud,omitempty" yaml:"include_cloud,omitempty"`
}

// Payload is the body of POST /api/efficient-frontier. Asset weights are ignored.
type Payload struct {
	ETFs   []backtest.AssetInput `json:"etfs" yaml:"etfs"`
	Config ConfigInput           `json:"config" yaml:"config"`
}

// PayloadDefaults carries the environment-dependent defaults and bounds.
type PayloadDefaults struct {
	Now          time.Time
	RiskFreeRate float64
	MaxSamples   int // 0 means unbounded
	TERs         backtest.TERLookup
}

// Request converts the payload into a service request.
func (p Payload) Request(d PayloadDefaults) (Request, error) {
	start, end, err := backtest.ParseWindow(p.Config.StartDate, p.Config.EndDate, d.Now)
	if err != nil {
		return Request{}, err
	}

	samples := DefaultSamples
	if p.Config.NumPortfolios != nil {
		samples = *p.Config.NumPortfolios
	}
	if samples <= 0 {
		return Request{}, &domain.InvalidConfigError{Field: "num_portfolios", Reason: "must be greater than 0"}
	}
	if d.MaxSamples > 0 && samples > d.MaxSamples {
		return Request{}, &domain.InvalidConfigError{
			Field:  "num_portfolios",
			Reason: fmt.Sprintf("%d exceeds the limit of %d", samples, d.MaxSamples),
		}
	}

	numEfficient := DefaultNumEfficient
	if p.Config.NumEfficientPortfolios != nil {
		numEfficient = *p.Config.NumEfficientPortfolios
	}

	rf := d.RiskFreeRate
	if p.Config.RiskFreeRate != nil {
		rf = *p.Config.RiskFreeRate
	}

	dist, err := ParseSamplingDistribution(p.Config.Distribution)
	if err != nil {
		return Request{}, err
	}

	return Request{
		Assets:       backtest.AssetSpecs(p.ETFs, d.TERs),
		Start:        start,
		End:          end,
		Samples:      samples,
		RiskFreeRate: rf,
		NumEfficient: numEfficient,
		Seed:         p.Config.Seed,
		Distribution: dist,
		IncludeCloud: p.Config.IncludeCloud,
	}, nil
}
