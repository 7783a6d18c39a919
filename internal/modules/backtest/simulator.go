package backtest

import (
	"fmt"
	"math"

	"github.com/aristath/etfbacktest/internal/domain"
)

// SimulationResult is the output of one simulated portfolio.
type SimulationResult struct {
	NAV          domain.NAVPath
	Events       []domain.RebalanceEvent
	FinalWeights []float64 // holding weights on the last date, in portfolio order
}

// TotalTurnover sums the turnover of every rebalance event.
func (r *SimulationResult) TotalTurnover() float64 {
	var total float64
	for _, e := range r.Events {
		total += e.Turnover
	}
	return total
}

// TotalCost sums the transaction costs paid.
func (r *SimulationResult) TotalCost() float64 {
	var total float64
	for _, e := range r.Events {
		total += e.Cost
	}
	return total
}

// Simulate runs the share-based NAV simulation of portfolio over the aligned calendar.
//
// Shares are bought at the first date's prices. Every following date marks the holdings
// to market, charges each holding its TER for the calendar days elapsed, and, on the
// first trading date of a new month/quarter/year, rebalances back to target weights
// after paying transaction_cost × turnover × value.
func Simulate(aligned *Aligned, portfolio domain.Portfolio, cfg domain.BacktestConfig) (*SimulationResult, error) {
	if aligned == nil || aligned.Len() == 0 {
		return nil, fmt.Errorf("simulate: empty calendar: %w", domain.ErrInsufficientData)
	}

	assets := portfolio.Assets()
	if len(assets) == 0 {
		return nil, &domain.InvalidWeightError{Reason: "portfolio has no assets"}
	}

	prices := make([][]float64, len(assets))
	for i, a := range assets {
		p := aligned.Prices[a.Ticker]
		if len(p) != aligned.Len() {
			return nil, fmt.Errorf("simulate: %s has %d prices for %d dates: %w",
				a.Ticker, len(p), aligned.Len(), domain.ErrInsufficientData)
		}
		prices[i] = p
	}

	dates := aligned.Dates
	shares := make([]float64, len(assets))
	holdings := make([]float64, len(assets))
	for i, a := range assets {
		shares[i] = cfg.InitialInvestment * a.Weight / prices[i][0]
		holdings[i] = cfg.InitialInvestment * a.Weight
	}

	nav := make(domain.NAVPath, len(dates))
	nav[0] = domain.NAVPoint{Date: dates[0], Value: cfg.InitialInvestment}

	var events []domain.RebalanceEvent
	lastPeriod := cfg.Frequency.Period(dates[0])

	for t := 1; t < len(dates); t++ {
		days := dates[t].Sub(dates[t-1]).Hours() / 24
		days = math.Round(days)

		var total float64
		for i, a := range assets {
			if a.TER > 0 && days > 0 {
				shares[i] *= math.Pow(1-a.TER/365, days)
			}
			holdings[i] = shares[i] * prices[i][t]
			total += holdings[i]
		}

		if cfg.Frequency != domain.RebalanceNone {
			period := cfg.Frequency.Period(dates[t])
			if period != lastPeriod {
				lastPeriod = period
				event, after := rebalance(holdings, total, assets, cfg.TransactionCost)
				event.Date = dates[t]
				events = append(events, event)

				total = after
				for i, a := range assets {
					shares[i] = total * a.Weight / prices[i][t]
					holdings[i] = total * a.Weight
				}
			}
		}

		nav[t] = domain.NAVPoint{Date: dates[t], Value: total}
	}

	final := make([]float64, len(assets))
	if last := nav.Final(); last > 0 {
		for i := range assets {
			final[i] = holdings[i] / last
		}
	}

	return &SimulationResult{NAV: nav, Events: events, FinalWeights: final}, nil
}

// rebalance computes turnover against target weights and returns the event together
// with the portfolio value left after transaction costs.
func rebalance(holdings []float64, total float64, assets []domain.AssetSpec, costRate float64) (domain.RebalanceEvent, float64) {
	if total <= 0 {
		return domain.RebalanceEvent{}, total
	}

	var traded float64
	for i, a := range assets {
		traded += math.Abs(holdings[i] - total*a.Weight)
	}
	turnover := traded / total
	cost := costRate * turnover * total

	return domain.RebalanceEvent{Turnover: turnover, Cost: cost}, total - cost
}
