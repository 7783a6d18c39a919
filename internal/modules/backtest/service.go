package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/internal/utils"
	"github.com/aristath/etfbacktest/pkg/formulas"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PriceProvider supplies daily price series for a window. With adjusted set it must
// return dividend-adjusted (total return) prices, otherwise price-only closes.
// Tickers without data are simply absent from the result.
type PriceProvider interface {
	GetSeries(ctx context.Context, tickers []string, start, end time.Time, adjusted bool) (map[string]domain.PriceSeries, error)
}

// Plotter renders PNG charts for a report.
type Plotter interface {
	Lines(title string, labels []string, names []string, values [][]float64) ([]byte, error)
	Histogram(title string, names []string, hists []formulas.Histogram) ([]byte, error)
	Pie(title string, labels []string, values []float64) ([]byte, error)
}

// Request is a validated backtest request.
type Request struct {
	Portfolio domain.Portfolio
	Benchmark domain.Portfolio
	Config    domain.BacktestConfig
}

// Service runs backtests: fetch → align → simulate → metrics → report.
type Service struct {
	prices  PriceProvider
	plotter Plotter
	log     zerolog.Logger
}

// NewService creates a backtest service. plotter may be nil to skip chart rendering.
func NewService(prices PriceProvider, plotter Plotter, log zerolog.Logger) *Service {
	return &Service{
		prices:  prices,
		plotter: plotter,
		log:     log.With().Str("service", "backtest").Logger(),
	}
}

// Run executes a backtest request.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if req.Portfolio.Len() == 0 {
		return nil, &domain.InvalidWeightError{Reason: "portfolio has no assets"}
	}
	if req.Benchmark.Len() == 0 {
		return nil, &domain.InvalidWeightError{Reason: "benchmark has no assets"}
	}

	tickers := mergeTickers(req.Portfolio.Tickers(), req.Benchmark.Tickers())

	started := time.Now()
	fetch := utils.NewTimer("backtest.fetch_prices", s.log)
	series, err := s.prices.GetSeries(ctx, tickers, cfg.Start, cfg.End, cfg.ReinvestDividends)
	fetch.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}

	aligned, err := Align(series, tickers, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}

	port, err := Simulate(aligned, req.Portfolio, cfg)
	if err != nil {
		return nil, fmt.Errorf("portfolio simulation: %w", err)
	}
	bench, err := Simulate(aligned, req.Benchmark, cfg)
	if err != nil {
		return nil, fmt.Errorf("benchmark simulation: %w", err)
	}

	report := assemble(req.Portfolio, req.Benchmark, cfg, port, bench)
	report.RunID = uuid.NewString()
	report.Plots = s.renderPlots(report, req.Portfolio)

	s.log.Debug().
		Str("run_id", report.RunID).
		Strs("tickers", tickers).
		Int("dates", aligned.Len()).
		Str("frequency", cfg.Frequency.String()).
		Int("rebalances", len(port.Events)).
		Dur("elapsed", time.Since(started)).
		Msg("Backtest completed")

	return report, nil
}

// renderPlots renders every chart it can. Failures are logged and the plot omitted.
func (s *Service) renderPlots(r *Report, portfolio domain.Portfolio) map[string]string {
	plots := make(map[string]string)
	if s.plotter == nil {
		return plots
	}

	names := []string{"Portfolio", "Benchmark"}
	add := func(name string, png []byte, err error) {
		if err != nil {
			s.log.Warn().Err(err).Str("plot", name).Msg("Failed to render plot")
			return
		}
		plots[name] = encodePNG(png)
	}

	png, err := s.plotter.Lines("Portfolio vs Benchmark", r.Series.Dates, names,
		[][]float64{r.Series.Portfolio, r.Series.Benchmark})
	add("performance", png, err)

	png, err = s.plotter.Lines("Drawdown", r.Series.Dates, names,
		[][]float64{r.Series.PortfolioDrawdown, r.Series.BenchmarkDrawdown})
	add("drawdown", png, err)

	png, err = s.plotter.Histogram("Daily Return Distribution", names,
		[]formulas.Histogram{r.Distribution.Portfolio, r.Distribution.Benchmark})
	add("distribution", png, err)

	png, err = s.plotter.Pie("Portfolio Allocation", portfolio.Tickers(), portfolio.Weights())
	add("allocation", png, err)

	return plots
}

func mergeTickers(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
