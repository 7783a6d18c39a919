package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram is an equal-width binning of a sample.
// Edges has len(Counts)+1 entries.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// NewHistogram bins data into the requested number of equal-width bins spanning
// [min, max]. The maximum value falls in the last bin. NaNs are ignored.
func NewHistogram(data []float64, bins int) Histogram {
	if bins <= 0 {
		return Histogram{}
	}

	x := make([]float64, 0, len(data))
	for _, v := range data {
		if IsDefined(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return Histogram{}
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)

	// stat.Histogram excludes the upper divider, so widen it just enough to keep hi.
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	return Histogram{Edges: edges, Counts: counts}
}
