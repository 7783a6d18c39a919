package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimates are the annualized inputs of the frontier sampler.
type Estimates struct {
	MeanReturns []float64     // mean daily return * 252, net of TER
	Cov         *mat.SymDense // sample covariance of daily returns * 252
}

// Estimate builds annualized mean returns and the annualized covariance matrix from
// per-asset daily return series of equal length. ters (annual fractions) may be nil.
func Estimate(returns [][]float64, ters []float64) (*Estimates, error) {
	n := len(returns)
	if n == 0 {
		return nil, &domain.InsufficientDataError{Reason: "no return series"}
	}
	if ters != nil && len(ters) != n {
		return nil, &domain.InvalidConfigError{Field: "ter", Reason: fmt.Sprintf("got %d expense ratios for %d assets", len(ters), n)}
	}

	obs := len(returns[0])
	if obs < 2 {
		return nil, &domain.InsufficientDataError{Reason: fmt.Sprintf("need at least 2 daily returns, got %d", obs)}
	}

	data := mat.NewDense(obs, n, nil)
	means := make([]float64, n)
	for j, series := range returns {
		if len(series) != obs {
			return nil, &domain.InsufficientDataError{Reason: fmt.Sprintf("return series %d has %d observations, want %d", j, len(series), obs)}
		}
		for i, r := range series {
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return nil, &domain.InsufficientDataError{Reason: fmt.Sprintf("return series %d has a non-finite value at %d", j, i)}
			}
			data.Set(i, j, r)
		}
		means[j] = stat.Mean(series, nil) * formulas.TradingDaysPerYear
		if ters != nil {
			means[j] -= ters[j]
		}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)
	cov.ScaleSym(formulas.TradingDaysPerYear, cov)

	return &Estimates{MeanReturns: means, Cov: cov}, nil
}

// Assets returns the universe size.
func (e *Estimates) Assets() int {
	return len(e.MeanReturns)
}

// Evaluate returns expected annual return, annual volatility and Sharpe ratio of w.
// Sharpe is NaN when the volatility is zero.
func (e *Estimates) Evaluate(w []float64, riskFreeRate float64) (ret, vol, sharpe float64) {
	ret = 0
	for i, wi := range w {
		ret += wi * e.MeanReturns[i]
	}

	wv := mat.NewVecDense(len(w), w)
	variance := mat.Inner(wv, e.Cov, wv)
	if variance < 0 {
		// rounding on (near) singular matrices
		variance = 0
	}
	vol = math.Sqrt(variance)

	if vol == 0 {
		return ret, vol, math.NaN()
	}
	return ret, vol, (ret - riskFreeRate) / vol
}
