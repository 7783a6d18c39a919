package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure classes. The typed errors below unwrap to
// these so callers can branch with errors.Is.
var (
	// ErrInvalidWeight indicates a portfolio whose weights cannot be normalized.
	ErrInvalidWeight = errors.New("invalid weight")

	// ErrInsufficientData indicates missing price data or a too-short aligned window.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidConfig indicates an invalid backtest or frontier configuration.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInsufficientUniverse indicates a frontier request over fewer than 2 assets.
	ErrInsufficientUniverse = errors.New("insufficient universe")
)

// Price source failures. These never come out of the engine itself.
var (
	// ErrTickerNotFound is returned by a price source that does not know a symbol.
	ErrTickerNotFound = errors.New("ticker not found")

	// ErrPriceSource marks a price source failure with no usable cached fallback.
	ErrPriceSource = errors.New("price source unavailable")
)

// InvalidWeightError reports weights that sum to 0, or a negative or non-finite weight.
type InvalidWeightError struct {
	Ticker string
	Reason string
}

func (e *InvalidWeightError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("invalid weight for %s: %s", e.Ticker, e.Reason)
	}
	return "invalid weight: " + e.Reason
}

func (e *InvalidWeightError) Unwrap() error { return ErrInvalidWeight }

// InsufficientDataError reports a ticker without data or an aligned intersection
// with fewer than 2 dates.
type InsufficientDataError struct {
	Ticker string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("insufficient data for %s: %s", e.Ticker, e.Reason)
	}
	return "insufficient data: " + e.Reason
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// InvalidConfigError reports an invalid configuration field.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// InsufficientUniverseError reports a frontier universe that is too small.
type InsufficientUniverseError struct {
	Assets int
}

func (e *InsufficientUniverseError) Error() string {
	return fmt.Sprintf("insufficient universe: efficient frontier needs at least 2 assets, got %d", e.Assets)
}

func (e *InsufficientUniverseError) Unwrap() error { return ErrInsufficientUniverse }

// IsValidationError reports whether err is caused by caller input rather than by data
// availability or an internal failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInsufficientUniverse)
}
