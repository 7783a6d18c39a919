// Package domain provides the value types shared by the backtest engine, the frontier
// optimizer and the adapters around them.
package domain

import (
	"time"
)

// DateLayout is the wire format of every date in requests, responses and CSV exports.
const DateLayout = "2006-01-02"

// PricePoint is one trading day's price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries is a time-ordered (ascending) price history for one ticker.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// DailyBar is what price sources return: the raw close and the
// dividend/split adjusted close for one trading day.
type DailyBar struct {
	Date     time.Time `json:"date" msgpack:"d"`
	Close    float64   `json:"close" msgpack:"c"`
	AdjClose float64   `json:"adj_close" msgpack:"a"`
}

// SeriesFromBars builds a PriceSeries from bars, taking the adjusted close when
// adjusted is true and the raw close otherwise.
func SeriesFromBars(ticker string, bars []DailyBar, adjusted bool) PriceSeries {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		price := b.Close
		if adjusted && b.AdjClose > 0 {
			price = b.AdjClose
		}
		points = append(points, PricePoint{Date: b.Date, Price: price})
	}
	return PriceSeries{Ticker: ticker, Points: points}
}

// TruncateDay normalizes t to midnight UTC of its calendar day.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NAVPoint is the simulated portfolio value at one date.
type NAVPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// NAVPath is the full simulated value history of a portfolio.
type NAVPath []NAVPoint

// Values returns the NAV values in date order.
func (p NAVPath) Values() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.Value
	}
	return out
}

// Dates returns the NAV dates in order.
func (p NAVPath) Dates() []time.Time {
	out := make([]time.Time, len(p))
	for i, pt := range p {
		out[i] = pt.Date
	}
	return out
}

// Final returns the last NAV value, or 0 for an empty path.
func (p NAVPath) Final() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].Value
}

// RebalanceEvent records one rebalance: the traded fraction of portfolio value and
// the transaction cost paid.
type RebalanceEvent struct {
	Date     time.Time `json:"date"`
	Turnover float64   `json:"turnover"`
	Cost     float64   `json:"cost"`
}

// MetricsSet holds the risk/return statistics of a NAV path.
// Undefined values (division by zero risk, too few points) are NaN and serialize as null.
type MetricsSet struct {
	TotalReturn Metric `json:"total_return"`
	CAGR        Metric `json:"annual_return"`
	Volatility  Metric `json:"volatility"`
	Sharpe      Metric `json:"sharpe_ratio"`
	Sortino     Metric `json:"sortino_ratio"`
	MaxDrawdown Metric `json:"max_drawdown"`
	Calmar      Metric `json:"calmar_ratio"`
	VaR95       Metric `json:"var_95"`
	Beta        Metric `json:"beta"`
	BestYear    Metric `json:"best_year"`
	WorstYear   Metric `json:"worst_year"`
	WinRate     Metric `json:"win_rate"`
}

// FrontierSample is one random long-only portfolio over an asset universe.
// Sharpe is NaN when the sample has zero volatility.
type FrontierSample struct {
	Weights    []float64
	Return     float64
	Volatility float64
	Sharpe     float64
}

// NamedPortfolio is a selected frontier sample with its label.
type NamedPortfolio struct {
	Name string
	FrontierSample
}

// FrontierResult is the sampled cloud plus the selected portfolios.
type FrontierResult struct {
	Tickers  []string
	Samples  []FrontierSample
	Selected []NamedPortfolio
	Seed     uint64
}
