// Package yfinance is a price source built on the go-yfinance library.
package yfinance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// Client implements the price source interface using go-yfinance.
type Client struct {
	now func() time.Time
	log zerolog.Logger
}

// NewClient creates a go-yfinance backed source.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		now: time.Now,
		log: log.With().Str("client", "yfinance").Logger(),
	}
}

// Name identifies the source in logs and cache keys.
func (c *Client) Name() string {
	return "yfinance"
}

// FetchDaily returns the daily bars of symbol between start and end (inclusive).
// The library works with look-back periods, so the smallest period covering start
// is requested and the result is filtered to the window.
func (c *Client) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.DailyBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker %s: %w", symbol, err)
	}
	defer t.Close()

	period := periodFor(start, c.now())
	history, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: false,
	})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%s: %w", symbol, domain.ErrTickerNotFound)
		}
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrTickerNotFound)
	}

	from := domain.TruncateDay(start)
	to := domain.TruncateDay(end)
	bars := make([]domain.DailyBar, 0, len(history))
	for _, h := range history {
		day := domain.TruncateDay(h.Date)
		if day.Before(from) || day.After(to) || h.Close <= 0 {
			continue
		}
		adj := h.AdjClose
		if adj <= 0 {
			adj = h.Close
		}
		bars = append(bars, domain.DailyBar{Date: day, Close: h.Close, AdjClose: adj})
	}

	c.log.Debug().
		Str("ticker", symbol).
		Str("period", period).
		Int("bars", len(bars)).
		Msg("Fetched daily bars")
	return bars, nil
}

// periodFor picks the shortest go-yfinance period reaching back to start.
func periodFor(start, now time.Time) string {
	periods := []struct {
		name  string
		years int
	}{
		{"1y", 1}, {"2y", 2}, {"5y", 5}, {"10y", 10},
	}
	for _, p := range periods {
		// a week of slack for weekends and holidays at the boundary
		if !start.Before(now.AddDate(-p.years, 0, 7)) {
			return p.name
		}
	}
	return "max"
}

func notFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no data") || strings.Contains(msg, "delisted")
}
