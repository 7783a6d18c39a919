package backtest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	series   map[string]domain.PriceSeries
	err      error
	calls    int
	adjusted bool
	tickers  []string
}

func (f *fakeProvider) GetSeries(ctx context.Context, tickers []string, start, end time.Time, adjusted bool) (map[string]domain.PriceSeries, error) {
	f.calls++
	f.adjusted = adjusted
	f.tickers = tickers
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.PriceSeries)
	for _, t := range tickers {
		if s, ok := f.series[t]; ok {
			out[t] = s
		}
	}
	return out, nil
}

type fakePlotter struct {
	failPie bool
}

func (p *fakePlotter) Lines(title string, labels []string, names []string, values [][]float64) ([]byte, error) {
	return []byte("lines:" + title), nil
}

func (p *fakePlotter) Histogram(title string, names []string, hists []formulas.Histogram) ([]byte, error) {
	return []byte("hist"), nil
}

func (p *fakePlotter) Pie(title string, labels []string, values []float64) ([]byte, error) {
	if p.failPie {
		return nil, errors.New("pie failed")
	}
	return []byte("pie"), nil
}

func newTestProvider() *fakeProvider {
	dates := weekdays(day(2022, 1, 3), day(2022, 12, 30))
	vti := make([]float64, len(dates))
	bnd := make([]float64, len(dates))
	spy := make([]float64, len(dates))
	for i := range dates {
		x := float64(i)
		vti[i] = 200 + 20*math.Sin(x/20) + 0.1*x
		bnd[i] = 80 - 0.01*x + math.Cos(x/9)
		spy[i] = 400 + 30*math.Sin(x/25) + 0.2*x
	}
	return &fakeProvider{series: map[string]domain.PriceSeries{
		"VTI": seriesOn("VTI", dates, vti),
		"BND": seriesOn("BND", dates, bnd),
		"SPY": seriesOn("SPY", dates, spy),
	}}
}

func testRequest(t *testing.T) Request {
	return Request{
		Portfolio: mustPortfolio(t,
			domain.AssetSpec{Ticker: "VTI", Weight: 60, TER: 0.0003},
			domain.AssetSpec{Ticker: "BND", Weight: 40, TER: 0.0003},
		),
		Benchmark: mustPortfolio(t, domain.AssetSpec{Ticker: "SPY", Weight: 1, TER: 0.000945}),
		Config: domain.BacktestConfig{
			Start:             day(2022, 1, 1),
			End:               day(2022, 12, 31),
			InitialInvestment: 10000,
			Frequency:         domain.RebalanceQuarterly,
			TransactionCost:   0.001,
			ReinvestDividends: true,
		},
	}
}

func TestService_Run(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	provider := newTestProvider()
	svc := NewService(provider, &fakePlotter{}, log)

	report, err := svc.Run(context.Background(), testRequest(t))
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.True(t, provider.adjusted)
	assert.Equal(t, []string{"VTI", "BND", "SPY"}, provider.tickers)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "2022-01-03", report.DateRange.Start)
	assert.Equal(t, "2022-12-30", report.DateRange.End)
	assert.Equal(t, report.PortfolioNAV.Final(), report.FinalValues.Portfolio)
	assert.Equal(t, report.BenchmarkNAV.Final(), report.FinalValues.Benchmark)
	assert.Equal(t, 10000.0, report.Series.Portfolio[0])
	assert.Len(t, report.Rebalances.Portfolio, 3)
	assert.Len(t, report.Distribution.Portfolio.Counts, DistributionBins)

	assert.Equal(t, "quarterly", report.Config.RebalanceFrequency)
	assert.InDelta(t, 0.0003, report.Config.PortfolioTER, 1e-15)
	assert.InDelta(t, 0.000945, report.Config.BenchmarkTER, 1e-15)

	require.Len(t, report.Allocation, 2)
	assert.Equal(t, "VTI", report.Allocation[0].Ticker)
	assert.InDelta(t, 0.6, report.Allocation[0].Weight, 1e-12)

	assert.True(t, report.Metrics.Portfolio.Beta.Defined())
	assert.False(t, report.Metrics.Benchmark.Beta.Defined())

	for _, name := range []string{"performance", "drawdown", "distribution", "allocation"} {
		assert.Contains(t, report.Plots, name)
	}
	raw, err := base64.StdEncoding.DecodeString(report.Plots["performance"])
	require.NoError(t, err)
	assert.Equal(t, "lines:Portfolio vs Benchmark", string(raw))

	// metrics with undefined values must still encode
	_, err = json.Marshal(report)
	assert.NoError(t, err)
}

func TestService_Run_PlotFailureIsNotFatal(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := NewService(newTestProvider(), &fakePlotter{failPie: true}, log)

	report, err := svc.Run(context.Background(), testRequest(t))
	require.NoError(t, err)

	assert.NotContains(t, report.Plots, "allocation")
	assert.Contains(t, report.Plots, "performance")
}

func TestService_Run_Errors(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	t.Run("invalid config fails before fetching", func(t *testing.T) {
		provider := newTestProvider()
		svc := NewService(provider, nil, log)
		req := testRequest(t)
		req.Config.InitialInvestment = 0

		_, err := svc.Run(context.Background(), req)
		assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("unknown ticker", func(t *testing.T) {
		svc := NewService(newTestProvider(), nil, log)
		req := testRequest(t)
		req.Benchmark = mustPortfolio(t, domain.AssetSpec{Ticker: "NOPE", Weight: 1})

		_, err := svc.Run(context.Background(), req)
		var derr *domain.InsufficientDataError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "NOPE", derr.Ticker)
	})

	t.Run("provider failure is wrapped", func(t *testing.T) {
		upstream := errors.New("upstream down")
		svc := NewService(&fakeProvider{err: upstream}, nil, log)

		_, err := svc.Run(context.Background(), testRequest(t))
		assert.True(t, errors.Is(err, upstream))
	})

	t.Run("empty benchmark", func(t *testing.T) {
		svc := NewService(newTestProvider(), nil, log)
		req := testRequest(t)
		req.Benchmark = domain.Portfolio{}

		_, err := svc.Run(context.Background(), req)
		assert.True(t, errors.Is(err, domain.ErrInvalidWeight))
	})
}
