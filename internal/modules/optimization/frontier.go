package optimization

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/rs/zerolog"
)

// Portfolio names in a frontier result.
const (
	NameMaxSharpe     = "Max Sharpe"
	NameMinVolatility = "Min Volatility"
	NameMaxReturn     = "Max Return"
)

const (
	// DefaultNumEfficient is used when a request asks for 0 efficient portfolios.
	DefaultNumEfficient = 3

	// chunkSize is the number of samples drawn from one RNG stream. Chunks, not
	// workers, own the streams so results do not depend on the worker count.
	chunkSize = 1024
)

// FrontierOptions configures one optimizer run.
type FrontierOptions struct {
	Samples      int
	RiskFreeRate float64
	NumEfficient int
	Seed         uint64
	TERs         []float64 // annual fractions, subtracted from mean returns; may be nil
	Distribution SamplingDistribution
}

// FrontierOptimizer approximates the efficient frontier by Monte Carlo sampling of
// long-only portfolios on a fixed-size worker pool.
type FrontierOptimizer struct {
	workers int
	log     zerolog.Logger
}

// NewFrontierOptimizer creates an optimizer. workers <= 0 uses runtime.NumCPU().
func NewFrontierOptimizer(workers int, log zerolog.Logger) *FrontierOptimizer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &FrontierOptimizer{
		workers: workers,
		log:     log.With().Str("component", "frontier_optimizer").Logger(),
	}
}

// Optimize samples opts.Samples portfolios over the assets whose daily returns are
// given (one series per ticker, equal lengths) and selects the labeled portfolios.
func (o *FrontierOptimizer) Optimize(tickers []string, returns [][]float64, opts FrontierOptions) (*domain.FrontierResult, error) {
	if len(tickers) < 2 {
		return nil, &domain.InsufficientUniverseError{Assets: len(tickers)}
	}
	if len(returns) != len(tickers) {
		return nil, &domain.InsufficientDataError{Reason: fmt.Sprintf("got %d return series for %d tickers", len(returns), len(tickers))}
	}
	if opts.Samples <= 0 {
		return nil, &domain.InvalidConfigError{Field: "num_portfolios", Reason: "must be greater than 0"}
	}
	if opts.NumEfficient < 0 {
		return nil, &domain.InvalidConfigError{Field: "num_efficient_portfolios", Reason: "must not be negative"}
	}
	if math.IsNaN(opts.RiskFreeRate) || math.IsInf(opts.RiskFreeRate, 0) {
		return nil, &domain.InvalidConfigError{Field: "risk_free_rate", Reason: "must be a finite number"}
	}

	est, err := Estimate(returns, opts.TERs)
	if err != nil {
		return nil, err
	}

	samples := o.sample(est, opts)

	numEfficient := opts.NumEfficient
	if numEfficient == 0 {
		numEfficient = DefaultNumEfficient
	}

	o.log.Debug().
		Int("assets", len(tickers)).
		Int("samples", len(samples)).
		Int("workers", o.workers).
		Uint64("seed", opts.Seed).
		Msg("Frontier sampled")

	return &domain.FrontierResult{
		Tickers:  append([]string(nil), tickers...),
		Samples:  samples,
		Selected: SelectPortfolios(samples, numEfficient),
		Seed:     opts.Seed,
	}, nil
}

// sample fills a pre-sized buffer. Each chunk of indices is owned by exactly one
// worker at a time, so workers write disjoint ranges without locking.
func (o *FrontierOptimizer) sample(est *Estimates, opts FrontierOptions) []domain.FrontierSample {
	n := opts.Samples
	k := est.Assets()
	samples := make([]domain.FrontierSample, n)
	weights := make([]float64, n*k)

	chunks := (n + chunkSize - 1) / chunkSize
	jobs := make(chan int, chunks)

	workers := min(o.workers, chunks)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				rng := rand.New(rand.NewPCG(opts.Seed, uint64(c)))
				lo := c * chunkSize
				hi := min(lo+chunkSize, n)
				for j := lo; j < hi; j++ {
					w := weights[j*k : (j+1)*k : (j+1)*k]
					drawWeights(rng, opts.Distribution, w)
					ret, vol, sharpe := est.Evaluate(w, opts.RiskFreeRate)
					samples[j] = domain.FrontierSample{Weights: w, Return: ret, Volatility: vol, Sharpe: sharpe}
				}
			}
		}()
	}

	for c := 0; c < chunks; c++ {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	return samples
}

// SelectPortfolios picks the labeled portfolios from a complete sample set:
// the maximum-Sharpe sample, the minimum-volatility sample, numEfficient-2 samples
// nearest to evenly spaced target returns strictly between those two, and the
// maximum-return sample. Nearest-target ties go to the smaller volatility.
// numEfficient = 1 keeps only the maximum-Sharpe portfolio (plus maximum return).
func SelectPortfolios(samples []domain.FrontierSample, numEfficient int) []domain.NamedPortfolio {
	if len(samples) == 0 {
		return nil
	}

	minVol := 0
	maxRet := 0
	maxSharpe := -1
	for i, s := range samples {
		if s.Volatility < samples[minVol].Volatility {
			minVol = i
		}
		if s.Return > samples[maxRet].Return ||
			(s.Return == samples[maxRet].Return && s.Volatility < samples[maxRet].Volatility) {
			maxRet = i
		}
		if math.IsNaN(s.Sharpe) {
			continue
		}
		if maxSharpe < 0 || s.Sharpe > samples[maxSharpe].Sharpe ||
			(s.Sharpe == samples[maxSharpe].Sharpe && s.Volatility < samples[maxSharpe].Volatility) {
			maxSharpe = i
		}
	}
	if maxSharpe < 0 {
		// every sample has zero volatility
		maxSharpe = minVol
	}

	selected := []domain.NamedPortfolio{named(NameMaxSharpe, samples[maxSharpe])}
	if numEfficient >= 2 {
		selected = append(selected, named(NameMinVolatility, samples[minVol]))
	}

	if extra := numEfficient - 2; extra > 0 {
		lo := samples[minVol].Return
		hi := samples[maxSharpe].Return
		for k := 1; k <= extra; k++ {
			target := lo + (hi-lo)*float64(k)/float64(extra+1)
			idx := nearestToReturn(samples, target)
			selected = append(selected, named(fmt.Sprintf("Efficient %d", k), samples[idx]))
		}
	}

	return append(selected, named(NameMaxReturn, samples[maxRet]))
}

func nearestToReturn(samples []domain.FrontierSample, target float64) int {
	best := 0
	bestDist := math.Abs(samples[0].Return - target)
	for i := 1; i < len(samples); i++ {
		d := math.Abs(samples[i].Return - target)
		if d < bestDist || (d == bestDist && samples[i].Volatility < samples[best].Volatility) {
			best = i
			bestDist = d
		}
	}
	return best
}

func named(name string, s domain.FrontierSample) domain.NamedPortfolio {
	w := make([]float64, len(s.Weights))
	copy(w, s.Weights)
	s.Weights = w
	return domain.NamedPortfolio{Name: name, FrontierSample: s}
}

// DisplayWeights is the presentation view of a weight vector: weights below threshold
// are omitted and the rest rescaled to sum to 1. The full vector is left untouched.
// If nothing clears the threshold every weight is kept.
func DisplayWeights(tickers []string, weights []float64, threshold float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	var kept float64
	for _, w := range weights {
		if w >= threshold {
			kept += w
		}
	}
	if kept == 0 {
		for i, w := range weights {
			out[tickers[i]] = w
		}
		return out
	}
	for i, w := range weights {
		if w >= threshold {
			out[tickers[i]] = w / kept
		}
	}
	return out
}
