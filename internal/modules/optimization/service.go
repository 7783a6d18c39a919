package optimization

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DisplayThreshold is the smallest weight shown in composition views.
const DisplayThreshold = 0.05

// Plotter renders the frontier charts.
type Plotter interface {
	Frontier(title string, volatilities, returns []float64) ([]byte, error)
	Bars(title string, categories []string, names []string, values [][]float64) ([]byte, error)
}

// Request is a frontier request after boundary parsing. Asset weights are ignored.
type Request struct {
	Assets       []domain.AssetSpec
	Start        time.Time
	End          time.Time
	Samples      int
	RiskFreeRate float64
	NumEfficient int
	Seed         *uint64
	Distribution SamplingDistribution
	IncludeCloud bool
}

// Report is the assembled frontier response.
type Report struct {
	RunID        string             `json:"run_id"`
	Seed         uint64             `json:"seed"`
	Tickers      []string           `json:"tickers"`
	DateRange    backtest.DateRange `json:"date_range"`
	Samples      int                `json:"num_portfolios"`
	Distribution string             `json:"distribution"`
	RiskFreeRate float64            `json:"risk_free_rate"`
	Portfolios   []PortfolioView    `json:"portfolios"`
	Cloud        *Cloud             `json:"cloud,omitempty"`
	Plots        map[string]string  `json:"plots"`
}

// PortfolioView is one selected portfolio as returned to callers.
type PortfolioView struct {
	Name             string             `json:"name"`
	AnnualReturn     domain.Metric      `json:"annual_return"`
	AnnualVolatility domain.Metric      `json:"annual_volatility"`
	SharpeRatio      domain.Metric      `json:"sharpe_ratio"`
	Weights          map[string]float64 `json:"weights"`
	DisplayWeights   map[string]float64 `json:"display_weights"`
}

// Cloud is the full sample set in columnar form.
type Cloud struct {
	Returns      []float64       `json:"returns"`
	Volatilities []float64       `json:"volatilities"`
	Sharpe       []domain.Metric `json:"sharpe"`
}

// Service fetches prices for a universe and runs the frontier optimizer.
type Service struct {
	prices    backtest.PriceProvider
	optimizer *FrontierOptimizer
	plotter   Plotter
	log       zerolog.Logger
}

// NewService creates a frontier service. plotter may be nil.
func NewService(prices backtest.PriceProvider, optimizer *FrontierOptimizer, plotter Plotter, log zerolog.Logger) *Service {
	return &Service{
		prices:    prices,
		optimizer: optimizer,
		plotter:   plotter,
		log:       log.With().Str("service", "efficient_frontier").Logger(),
	}
}

// Run executes a frontier request.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	tickers, ters, err := universe(req.Assets)
	if err != nil {
		return nil, err
	}
	if req.End.Before(req.Start) {
		return nil, &domain.InvalidConfigError{Field: "end_date", Reason: "end date is before start date"}
	}

	runID := uuid.New()
	// 53 bits so JSON clients can send the seed back unchanged
	seed := binary.BigEndian.Uint64(runID[:8]) >> 11
	if req.Seed != nil {
		seed = *req.Seed
	}

	series, err := s.prices.GetSeries(ctx, tickers, req.Start, req.End, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}

	aligned, err := backtest.Align(series, tickers, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	returns, err := aligned.ReturnMatrix(tickers)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := s.optimizer.Optimize(tickers, returns, FrontierOptions{
		Samples:      req.Samples,
		RiskFreeRate: req.RiskFreeRate,
		NumEfficient: req.NumEfficient,
		Seed:         seed,
		TERs:         ters,
		Distribution: req.Distribution,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("run_id", runID.String()).
		Int("assets", len(tickers)).
		Int("samples", req.Samples).
		Dur("elapsed", time.Since(started)).
		Msg("Efficient frontier computed")

	report := &Report{
		RunID:   runID.String(),
		Seed:    seed,
		Tickers: tickers,
		DateRange: backtest.DateRange{
			Start: aligned.Dates[0].Format(domain.DateLayout),
			End:   aligned.Dates[aligned.Len()-1].Format(domain.DateLayout),
		},
		Samples:      len(result.Samples),
		Distribution: req.Distribution.String(),
		RiskFreeRate: req.RiskFreeRate,
		Portfolios:   views(result),
	}
	if req.IncludeCloud {
		report.Cloud = cloud(result.Samples)
	}
	report.Plots = s.renderPlots(result, report.Portfolios)

	return report, nil
}

func (s *Service) renderPlots(result *domain.FrontierResult, portfolios []PortfolioView) map[string]string {
	plots := make(map[string]string)
	if s.plotter == nil {
		return plots
	}
	defer utils.OperationTimer("frontier.render_plots", s.log)()

	vols := make([]float64, len(result.Samples))
	rets := make([]float64, len(result.Samples))
	for i, smp := range result.Samples {
		vols[i] = smp.Volatility
		rets[i] = smp.Return
	}
	if png, err := s.plotter.Frontier("Efficient Frontier", vols, rets); err != nil {
		s.log.Warn().Err(err).Msg("Failed to render efficient frontier plot")
	} else {
		plots["efficient_frontier"] = base64.StdEncoding.EncodeToString(png)
	}

	names := make([]string, len(portfolios))
	values := make([][]float64, len(portfolios))
	for i, p := range portfolios {
		names[i] = p.Name
		values[i] = make([]float64, len(result.Tickers))
		for j, t := range result.Tickers {
			values[i][j] = p.DisplayWeights[t]
		}
	}
	if png, err := s.plotter.Bars("Portfolio Compositions", result.Tickers, names, values); err != nil {
		s.log.Warn().Err(err).Msg("Failed to render composition plot")
	} else {
		plots["portfolio_compositions"] = base64.StdEncoding.EncodeToString(png)
	}

	return plots
}

// universe validates the requested assets and returns tickers and TERs in order.
func universe(assets []domain.AssetSpec) ([]string, []float64, error) {
	seen := make(map[string]bool, len(assets))
	tickers := make([]string, 0, len(assets))
	ters := make([]float64, 0, len(assets))
	for _, a := range assets {
		t := strings.ToUpper(strings.TrimSpace(a.Ticker))
		if t == "" {
			return nil, nil, &domain.InvalidWeightError{Reason: "asset with empty ticker"}
		}
		if a.TER < 0 {
			return nil, nil, &domain.InvalidWeightError{Ticker: t, Reason: "negative expense ratio"}
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
		ters = append(ters, a.TER)
	}
	if len(tickers) < 2 {
		return nil, nil, &domain.InsufficientUniverseError{Assets: len(tickers)}
	}
	return tickers, ters, nil
}

func views(result *domain.FrontierResult) []PortfolioView {
	out := make([]PortfolioView, len(result.Selected))
	for i, p := range result.Selected {
		weights := make(map[string]float64, len(result.Tickers))
		for j, t := range result.Tickers {
			weights[t] = p.Weights[j]
		}
		out[i] = PortfolioView{
			Name:             p.Name,
			AnnualReturn:     domain.Metric(p.Return),
			AnnualVolatility: domain.Metric(p.Volatility),
			SharpeRatio:      domain.Metric(p.Sharpe),
			Weights:          weights,
			DisplayWeights:   DisplayWeights(result.Tickers, p.Weights, DisplayThreshold),
		}
	}
	return out
}

func cloud(samples []domain.FrontierSample) *Cloud {
	c := &Cloud{
		Returns:      make([]float64, len(samples)),
		Volatilities: make([]float64, len(samples)),
		Sharpe:       make([]domain.Metric, len(samples)),
	}
	for i, s := range samples {
		c.Returns[i] = s.Return
		c.Volatilities[i] = s.Volatility
		c.Sharpe[i] = domain.Metric(s.Sharpe)
	}
	return c
}
