// Package formulas holds the return and risk statistics used by the backtest engine.
// Ratios that divide by a zero (or undefined) risk term return NaN instead of failing.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// StdDev is the sample standard deviation (n-1 denominator).
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.StdDev(data, nil)
}

// Variance is the sample variance (n-1 denominator).
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	return stat.Covariance(x, y, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns:
// stddev(r) * sqrt(252).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts a value path into simple period returns.
// Returns[i] = Values[i+1]/Values[i] - 1. A zero base yields NaN for that period.
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns[i-1] = math.NaN()
			continue
		}
		returns[i-1] = values[i]/values[i-1] - 1
	}

	return returns
}

// TotalReturn is end/start - 1 over a value path.
func TotalReturn(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return math.NaN()
	}
	return values[len(values)-1]/values[0] - 1
}

// CAGR annualizes the total return of a daily value path:
// (end/start)^(252/N) - 1 where N is the number of periods.
func CAGR(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return math.NaN()
	}
	periods := float64(len(values) - 1)
	growth := values[len(values)-1] / values[0]
	return math.Pow(growth, TradingDaysPerYear/periods) - 1
}

// WinRate is the fraction of strictly positive returns.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// IsDefined reports whether v is a usable finite number.
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
