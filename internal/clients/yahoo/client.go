// Package yahoo provides a client for the Yahoo Finance chart API.
// Only daily closes and adjusted closes are requested.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	userAgent     = "Mozilla/5.0 (X11; Linux x86_64) etfbacktest/1.0"
	maxAttempts   = 3
	baseRetryWait = 500 * time.Millisecond
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		GMTOffset int64 `json:"gmtoffset"` // exchange offset from UTC in seconds
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Client fetches daily bars from the chart endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryWait  time.Duration
	log        zerolog.Logger
}

// NewClient creates a chart API client. An empty baseURL uses DefaultBaseURL and
// ratePerSec <= 0 disables rate limiting.
func NewClient(baseURL string, ratePerSec float64, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:   rate.NewLimiter(limit, 1),
		retryWait: baseRetryWait,
		log:       log.With().Str("client", "yahoo-chart").Logger(),
	}
}

// Name identifies the source in logs and cache keys.
func (c *Client) Name() string {
	return "chart"
}

// FetchDaily returns the daily bars of ticker between start and end (inclusive),
// ascending by date. Rows with a missing close are skipped; a missing adjusted close
// falls back to the close.
func (c *Client) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]domain.DailyBar, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(domain.TruncateDay(start).Unix(), 10))
	// period2 is exclusive
	q.Set("period2", strconv.FormatInt(domain.TruncateDay(end).AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,split")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	var resp chartResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("chart request for %s: %w", ticker, err)
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%s: %w", ticker, domain.ErrTickerNotFound)
		}
		return nil, fmt.Errorf("chart error for %s: %s: %s", ticker, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, domain.ErrTickerNotFound)
	}

	bars := parseBars(resp.Chart.Result[0])
	c.log.Debug().
		Str("ticker", ticker).
		Int("bars", len(bars)).
		Msg("Fetched daily bars")
	return bars, nil
}

func parseBars(r chartResult) []domain.DailyBar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	closes := r.Indicators.Quote[0].Close
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	// timestamps mark the session open; the trading day is the exchange's local date
	offset := r.Meta.GMTOffset

	bars := make([]domain.DailyBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil || !usable(*closes[i]) {
			continue
		}
		bar := domain.DailyBar{
			Date:     domain.TruncateDay(time.Unix(ts+offset, 0).UTC()),
			Close:    *closes[i],
			AdjClose: *closes[i],
		}
		if i < len(adj) && adj[i] != nil && usable(*adj[i]) {
			bar.AdjClose = *adj[i]
		}
		// the last row can repeat the previous day for intraday quotes
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(bar.Date) {
			bars[n-1] = bar
			continue
		}
		bars = append(bars, bar)
	}
	return bars
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// get performs a rate-limited GET with bounded exponential backoff on transport
// errors, 429 and 5xx responses.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Chart request failed")
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("chart API status %d", resp.StatusCode)
			c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Retrying chart request")
			continue
		}

		err = decode(resp, out)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

// decode reads a 2xx body, or a 404 body which carries the chart error object.
func decode(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chart API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return domain.ErrTickerNotFound
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt-1))) * c.retryWait
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
