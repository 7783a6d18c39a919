package optimization

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/aristath/etfbacktest/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// SamplingDistribution selects how raw weight components are drawn before
// normalization.
type SamplingDistribution int

const (
	// SampleUniform draws each component from U[0,1) and normalizes.
	SampleUniform SamplingDistribution = iota
	// SampleDirichlet draws each component from Exp(1) and normalizes, which is
	// uniform over the simplex.
	SampleDirichlet
)

// ParseSamplingDistribution accepts "uniform" (or empty) and "dirichlet".
func ParseSamplingDistribution(s string) (SamplingDistribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return SampleUniform, nil
	case "dirichlet":
		return SampleDirichlet, nil
	default:
		return SampleUniform, &domain.InvalidConfigError{
			Field:  "distribution",
			Reason: fmt.Sprintf("unknown sampling distribution %q (want uniform or dirichlet)", s),
		}
	}
}

func (d SamplingDistribution) String() string {
	if d == SampleDirichlet {
		return "dirichlet"
	}
	return "uniform"
}

// drawWeights fills w with non-negative components normalized to sum to 1.
// An all-zero draw is repeated.
func drawWeights(rng *rand.Rand, dist SamplingDistribution, w []float64) {
	for {
		for i := range w {
			if dist == SampleDirichlet {
				w[i] = rng.ExpFloat64()
			} else {
				w[i] = rng.Float64()
			}
		}
		if sum := floats.Sum(w); sum > 0 {
			floats.Scale(1/sum, w)
			return
		}
	}
}
