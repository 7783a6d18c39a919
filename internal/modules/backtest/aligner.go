// Package backtest simulates periodically rebalanced ETF portfolios and computes their
// risk/return statistics.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/pkg/formulas"
)

// Aligned holds price series restricted to a common trading calendar.
// Prices[ticker][i] is the price on Dates[i].
type Aligned struct {
	Dates  []time.Time
	Prices map[string][]float64
}

// Align intersects the trading dates of every requested ticker within [start, end]
// (inclusive, by calendar day) and restricts each series to those dates. Non-positive
// or non-finite prices are dropped first; if a series repeats a date the later point wins.
func Align(series map[string]domain.PriceSeries, tickers []string, start, end time.Time) (*Aligned, error) {
	if len(tickers) == 0 {
		return nil, &domain.InsufficientDataError{Reason: "no tickers requested"}
	}

	start = domain.TruncateDay(start)
	end = domain.TruncateDay(end)

	byTicker := make(map[string]map[time.Time]float64, len(tickers))
	var common map[time.Time]struct{}

	for _, ticker := range tickers {
		if _, done := byTicker[ticker]; done {
			continue
		}

		s, ok := series[ticker]
		if !ok || len(s.Points) == 0 {
			return nil, &domain.InsufficientDataError{Ticker: ticker, Reason: "no price data"}
		}

		prices := make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			day := domain.TruncateDay(p.Date)
			if day.Before(start) || day.After(end) {
				continue
			}
			if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
				continue
			}
			prices[day] = p.Price
		}
		if len(prices) == 0 {
			return nil, &domain.InsufficientDataError{
				Ticker: ticker,
				Reason: fmt.Sprintf("no prices between %s and %s", start.Format(domain.DateLayout), end.Format(domain.DateLayout)),
			}
		}
		byTicker[ticker] = prices

		if common == nil {
			common = make(map[time.Time]struct{}, len(prices))
			for d := range prices {
				common[d] = struct{}{}
			}
			continue
		}
		for d := range common {
			if _, ok := prices[d]; !ok {
				delete(common, d)
			}
		}
	}

	if len(common) < 2 {
		return nil, &domain.InsufficientDataError{
			Reason: fmt.Sprintf("only %d common trading date(s) across %d tickers, need at least 2", len(common), len(byTicker)),
		}
	}

	dates := make([]time.Time, 0, len(common))
	for d := range common {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	aligned := &Aligned{
		Dates:  dates,
		Prices: make(map[string][]float64, len(byTicker)),
	}
	for ticker, prices := range byTicker {
		column := make([]float64, len(dates))
		for i, d := range dates {
			column[i] = prices[d]
		}
		aligned.Prices[ticker] = column
	}

	return aligned, nil
}

// Len returns the number of aligned dates.
func (a *Aligned) Len() int {
	return len(a.Dates)
}

// Returns gives the simple daily returns of ticker over the aligned calendar.
func (a *Aligned) Returns(ticker string) []float64 {
	return formulas.CalculateReturns(a.Prices[ticker])
}

// ReturnMatrix returns one daily return series per ticker, in the given order.
func (a *Aligned) ReturnMatrix(tickers []string) ([][]float64, error) {
	out := make([][]float64, len(tickers))
	for i, t := range tickers {
		if _, ok := a.Prices[t]; !ok {
			return nil, &domain.InsufficientDataError{Ticker: t, Reason: "ticker not in aligned set"}
		}
		out[i] = a.Returns(t)
	}
	return out, nil
}
