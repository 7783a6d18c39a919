package formulas

import (
	"math"
)

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
//
//	Sharpe = (mean(r) * 252 - riskFreeRate) / (stddev(r) * sqrt(252))
//
// riskFreeRate is annual, as a decimal. Zero volatility yields NaN.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	vol := AnnualizedVolatility(returns)
	return safeDiv(Mean(returns)*TradingDaysPerYear-riskFreeRate, vol)
}

// DownsideDeviation is sqrt(mean(min(r,0)^2)) * sqrt(252).
func DownsideDeviation(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, r := range returns {
		if r < 0 {
			sum += r * r
		}
	}
	return math.Sqrt(sum/float64(len(returns))) * math.Sqrt(TradingDaysPerYear)
}

// SortinoRatio uses the Sharpe numerator over the annualized downside deviation.
// A series without negative returns has no downside and yields NaN.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	return safeDiv(Mean(returns)*TradingDaysPerYear-riskFreeRate, DownsideDeviation(returns))
}

// CalmarRatio is CAGR / |max drawdown|. NaN when there was no drawdown.
func CalmarRatio(cagr, maxDrawdown float64) float64 {
	return safeDiv(cagr, math.Abs(maxDrawdown))
}

// Beta is cov(asset, benchmark) / var(benchmark). NaN when the benchmark has no variance.
func Beta(assetReturns, benchmarkReturns []float64) float64 {
	if len(assetReturns) != len(benchmarkReturns) {
		return math.NaN()
	}
	return safeDiv(Covariance(assetReturns, benchmarkReturns), Variance(benchmarkReturns))
}

func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return math.NaN()
	}
	return num / den
}
