package formulas

import "math"

// DrawdownSeries returns value/running_max - 1 for every point of a value path.
// Every entry is <= 0.
func DrawdownSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	peak := math.Inf(-1)
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = v/peak - 1
	}
	return out
}

// MaxDrawdown is the minimum of DrawdownSeries, i.e. the deepest peak-to-trough
// loss as a negative fraction. It is 0 only for non-decreasing paths.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	worst := 0.0
	for _, dd := range DrawdownSeries(values) {
		if dd < worst {
			worst = dd
		}
	}
	return worst
}
