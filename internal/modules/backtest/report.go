package backtest

import (
	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/pkg/formulas"
)

// DistributionBins is the bin count of the daily-return histograms.
const DistributionBins = 30

// Report is the assembled result of a backtest run.
type Report struct {
	RunID         string                        `json:"run_id"`
	DateRange     DateRange                     `json:"date_range"`
	FinalValues   Pair[float64]                 `json:"final_values"`
	Metrics       Pair[domain.MetricsSet]       `json:"metrics"`
	Config        ConfigEcho                    `json:"config"`
	Rebalances    Pair[[]domain.RebalanceEvent] `json:"rebalances"`
	Series        Series                        `json:"series"`
	Distribution  Pair[formulas.Histogram]      `json:"distribution"`
	YearlyReturns Pair[[]YearReturn]            `json:"yearly_returns"`
	Allocation    []AllocationEntry             `json:"allocation"`
	Plots         map[string]string             `json:"plots"`

	PortfolioNAV domain.NAVPath `json:"-"`
	BenchmarkNAV domain.NAVPath `json:"-"`
}

// Pair holds the same value for the portfolio and its benchmark.
type Pair[T any] struct {
	Portfolio T `json:"portfolio"`
	Benchmark T `json:"benchmark"`
}

// DateRange is the aligned window actually simulated.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ConfigEcho repeats the effective configuration back to the caller.
type ConfigEcho struct {
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	InitialInvestment  float64 `json:"initial_investment"`
	RebalanceFrequency string  `json:"rebalance_frequency"`
	TransactionCost    float64 `json:"transaction_cost"`
	ReinvestDividends  bool    `json:"reinvest_dividends"`
	RiskFreeRate       float64 `json:"risk_free_rate"`
	PortfolioTER       float64 `json:"portfolio_ter"`
	BenchmarkTER       float64 `json:"benchmark_ter"`
}

// Series carries the chartable paths on the aligned calendar.
type Series struct {
	Dates             []string  `json:"dates"`
	Portfolio         []float64 `json:"portfolio"`
	Benchmark         []float64 `json:"benchmark"`
	PortfolioDrawdown []float64 `json:"portfolio_drawdown"`
	BenchmarkDrawdown []float64 `json:"benchmark_drawdown"`
}

// AllocationEntry is one holding of the simulated portfolio.
type AllocationEntry struct {
	Ticker      string  `json:"ticker"`
	Weight      float64 `json:"weight"`
	FinalWeight float64 `json:"final_weight"`
	TER         float64 `json:"ter"`
}

// assemble builds everything in a Report except RunID and Plots.
func assemble(portfolio, benchmark domain.Portfolio, cfg domain.BacktestConfig, port, bench *SimulationResult) *Report {
	pv := port.NAV.Values()
	bv := bench.NAV.Values()
	dates := port.NAV.Dates()

	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.Format(domain.DateLayout)
	}

	assets := portfolio.Assets()
	allocation := make([]AllocationEntry, len(assets))
	for i, a := range assets {
		allocation[i] = AllocationEntry{
			Ticker:      a.Ticker,
			Weight:      a.Weight,
			FinalWeight: port.FinalWeights[i],
			TER:         a.TER,
		}
	}

	return &Report{
		DateRange: DateRange{Start: labels[0], End: labels[len(labels)-1]},
		FinalValues: Pair[float64]{
			Portfolio: port.NAV.Final(),
			Benchmark: bench.NAV.Final(),
		},
		Metrics: Pair[domain.MetricsSet]{
			Portfolio: ComputeMetrics(port.NAV, bench.NAV, cfg.RiskFreeRate),
			Benchmark: ComputeMetrics(bench.NAV, nil, cfg.RiskFreeRate),
		},
		Config: ConfigEcho{
			StartDate:          cfg.Start.Format(domain.DateLayout),
			EndDate:            cfg.End.Format(domain.DateLayout),
			InitialInvestment:  cfg.InitialInvestment,
			RebalanceFrequency: cfg.Frequency.String(),
			TransactionCost:    cfg.TransactionCost,
			ReinvestDividends:  cfg.ReinvestDividends,
			RiskFreeRate:       cfg.RiskFreeRate,
			PortfolioTER:       portfolio.WeightedTER(),
			BenchmarkTER:       benchmark.WeightedTER(),
		},
		Rebalances: Pair[[]domain.RebalanceEvent]{
			Portfolio: port.Events,
			Benchmark: bench.Events,
		},
		Series: Series{
			Dates:             labels,
			Portfolio:         pv,
			Benchmark:         bv,
			PortfolioDrawdown: formulas.DrawdownSeries(pv),
			BenchmarkDrawdown: formulas.DrawdownSeries(bv),
		},
		Distribution: Pair[formulas.Histogram]{
			Portfolio: formulas.NewHistogram(formulas.CalculateReturns(pv), DistributionBins),
			Benchmark: formulas.NewHistogram(formulas.CalculateReturns(bv), DistributionBins),
		},
		YearlyReturns: Pair[[]YearReturn]{
			Portfolio: YearlyReturns(port.NAV),
			Benchmark: YearlyReturns(bench.NAV),
		},
		Allocation:   allocation,
		PortfolioNAV: port.NAV,
		BenchmarkNAV: bench.NAV,
	}
}
