package formulas

import (
	"math"
	"sort"
)

// Percentile returns the p-th quantile (0..1) of data using linear interpolation
// between closest ranks, h = (n-1)p (the NumPy/pandas default).
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return math.NaN()
	}

	sorted := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// HistoricalVaR is the empirical (1-confidence) quantile of returns.
// A negative value is a potential loss: HistoricalVaR(r, 0.95) is the 5th percentile.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	return Percentile(returns, 1-confidence)
}
