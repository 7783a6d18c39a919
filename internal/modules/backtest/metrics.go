package backtest

import (
	"math"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/pkg/formulas"
)

// VaRConfidence is the confidence level of the reported historical VaR.
const VaRConfidence = 0.95

// ComputeMetrics derives the statistic set of a NAV path. benchmark may be nil, in
// which case Beta is undefined. Undefined statistics are NaN, never errors.
func ComputeMetrics(nav, benchmark domain.NAVPath, riskFreeRate float64) domain.MetricsSet {
	values := nav.Values()
	returns := formulas.CalculateReturns(values)

	cagr := formulas.CAGR(values)
	maxDD := formulas.MaxDrawdown(values)

	beta := math.NaN()
	if benchmark != nil {
		beta = formulas.Beta(returns, formulas.CalculateReturns(benchmark.Values()))
	}

	best, worst := math.NaN(), math.NaN()
	for _, yr := range YearlyReturns(nav) {
		if math.IsNaN(best) || yr.Return > best {
			best = yr.Return
		}
		if math.IsNaN(worst) || yr.Return < worst {
			worst = yr.Return
		}
	}

	return domain.MetricsSet{
		TotalReturn: domain.Metric(formulas.TotalReturn(values)),
		CAGR:        domain.Metric(cagr),
		Volatility:  domain.Metric(formulas.AnnualizedVolatility(returns)),
		Sharpe:      domain.Metric(formulas.SharpeRatio(returns, riskFreeRate)),
		Sortino:     domain.Metric(formulas.SortinoRatio(returns, riskFreeRate)),
		MaxDrawdown: domain.Metric(maxDD),
		Calmar:      domain.Metric(formulas.CalmarRatio(cagr, maxDD)),
		VaR95:       domain.Metric(formulas.HistoricalVaR(returns, VaRConfidence)),
		Beta:        domain.Metric(beta),
		BestYear:    domain.Metric(best),
		WorstYear:   domain.Metric(worst),
		WinRate:     domain.Metric(formulas.WinRate(returns)),
	}
}

// YearReturn is the return of one calendar year.
type YearReturn struct {
	Year   int     `json:"year"`
	Return float64 `json:"return"`
}

// YearlyReturns measures each calendar year from the previous year's last NAV (the
// first NAV for the first year) to the year's last NAV. Partial years are included.
func YearlyReturns(nav domain.NAVPath) []YearReturn {
	if len(nav) < 2 {
		return nil
	}

	var out []YearReturn
	base := nav[0].Value
	year := nav[0].Date.Year()
	for i := 1; i < len(nav); i++ {
		y := nav[i].Date.Year()
		if y != year {
			out = append(out, YearReturn{Year: year, Return: nav[i-1].Value/base - 1})
			base = nav[i-1].Value
			year = y
		}
	}
	out = append(out, YearReturn{Year: year, Return: nav[len(nav)-1].Value/base - 1})
	return out
}
