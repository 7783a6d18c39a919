package backtest

import (
	"testing"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdays returns every Monday-Friday date in [from, to].
func weekdays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func seriesOn(ticker string, dates []time.Time, prices []float64) domain.PriceSeries {
	points := make([]domain.PricePoint, len(dates))
	for i := range dates {
		points[i] = domain.PricePoint{Date: dates[i], Price: prices[i]}
	}
	return domain.PriceSeries{Ticker: ticker, Points: points}
}

func alignedFrom(t *testing.T, dates []time.Time, prices map[string][]float64) *Aligned {
	t.Helper()
	series := make(map[string]domain.PriceSeries, len(prices))
	tickers := make([]string, 0, len(prices))
	for ticker, p := range prices {
		series[ticker] = seriesOn(ticker, dates, p)
		tickers = append(tickers, ticker)
	}
	aligned, err := Align(series, tickers, dates[0], dates[len(dates)-1])
	require.NoError(t, err)
	return aligned
}

func mustPortfolio(t *testing.T, specs ...domain.AssetSpec) domain.Portfolio {
	t.Helper()
	p, err := domain.NewPortfolio(specs)
	require.NoError(t, err)
	return p
}

func baseConfig(dates []time.Time) domain.BacktestConfig {
	return domain.BacktestConfig{
		Start:             dates[0],
		End:               dates[len(dates)-1],
		InitialInvestment: 10000,
		Frequency:         domain.RebalanceNone,
	}
}
