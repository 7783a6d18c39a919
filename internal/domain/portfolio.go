package domain

import (
	"fmt"
	"math"
	"strings"
)

// AssetSpec is one holding of a portfolio: ticker, target weight and annual TER
// as a fraction (0.0007 = 0.07%).
type AssetSpec struct {
	Ticker string  `json:"ticker" yaml:"ticker"`
	Weight float64 `json:"weight" yaml:"weight"`
	TER    float64 `json:"ter" yaml:"ter"`
}

// Portfolio is a validated basket whose weights sum to 1.
// Build it with NewPortfolio; it is never mutated afterwards.
type Portfolio struct {
	assets []AssetSpec
}

// NewPortfolio validates raw asset specs and normalizes their weights to sum to 1.
// Tickers are trimmed and upper-cased. Raw weights need not sum to 1, but they must be
// finite and non-negative, and their sum must be positive.
func NewPortfolio(raw []AssetSpec) (Portfolio, error) {
	if len(raw) == 0 {
		return Portfolio{}, &InvalidWeightError{Reason: "portfolio has no assets"}
	}

	seen := make(map[string]bool, len(raw))
	assets := make([]AssetSpec, 0, len(raw))
	var sum float64
	for _, a := range raw {
		ticker := strings.ToUpper(strings.TrimSpace(a.Ticker))
		if ticker == "" {
			return Portfolio{}, &InvalidWeightError{Reason: "asset with empty ticker"}
		}
		if seen[ticker] {
			return Portfolio{}, &InvalidWeightError{Ticker: ticker, Reason: "duplicate ticker"}
		}
		seen[ticker] = true

		if math.IsNaN(a.Weight) || math.IsInf(a.Weight, 0) {
			return Portfolio{}, &InvalidWeightError{Ticker: ticker, Reason: "weight is not a finite number"}
		}
		if a.Weight < 0 {
			return Portfolio{}, &InvalidWeightError{Ticker: ticker, Reason: fmt.Sprintf("negative weight %g", a.Weight)}
		}
		if math.IsNaN(a.TER) || math.IsInf(a.TER, 0) || a.TER < 0 {
			return Portfolio{}, &InvalidWeightError{Ticker: ticker, Reason: fmt.Sprintf("expense ratio must be a non-negative number, got %g", a.TER)}
		}

		sum += a.Weight
		assets = append(assets, AssetSpec{Ticker: ticker, Weight: a.Weight, TER: a.TER})
	}

	if sum == 0 {
		return Portfolio{}, &InvalidWeightError{Reason: "weights sum to 0"}
	}
	for i := range assets {
		assets[i].Weight /= sum
	}

	return Portfolio{assets: assets}, nil
}

// Assets returns a copy of the normalized holdings.
func (p Portfolio) Assets() []AssetSpec {
	out := make([]AssetSpec, len(p.assets))
	copy(out, p.assets)
	return out
}

// Tickers returns the tickers in input order.
func (p Portfolio) Tickers() []string {
	out := make([]string, len(p.assets))
	for i, a := range p.assets {
		out[i] = a.Ticker
	}
	return out
}

// Weights returns the normalized weights in input order.
func (p Portfolio) Weights() []float64 {
	out := make([]float64, len(p.assets))
	for i, a := range p.assets {
		out[i] = a.Weight
	}
	return out
}

// TERs returns the annual expense ratios in input order.
func (p Portfolio) TERs() []float64 {
	out := make([]float64, len(p.assets))
	for i, a := range p.assets {
		out[i] = a.TER
	}
	return out
}

// Len returns the number of holdings.
func (p Portfolio) Len() int {
	return len(p.assets)
}

// WeightedTER is the portfolio-level expense ratio Σ wᵢ·terᵢ.
func (p Portfolio) WeightedTER() float64 {
	var ter float64
	for _, a := range p.assets {
		ter += a.Weight * a.TER
	}
	return ter
}
