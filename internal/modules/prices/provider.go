// Package prices loads daily price histories for the backtest and frontier services.
package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/etfbacktest/internal/clientdata"
	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// maxConcurrentFetches bounds parallel source requests for one call.
	maxConcurrentFetches = 4
	// sharedLoadTimeout caps a load that may outlive the request that started it.
	sharedLoadTimeout = 2 * time.Minute
)

// Source fetches daily bars for one ticker.
type Source interface {
	Name() string
	FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]domain.DailyBar, error)
}

// Cache stores bar histories between requests. *clientdata.Repository implements it.
type Cache interface {
	Store(table, key string, data any, ttl time.Duration) error
	GetIfFresh(table, key string, out any) (bool, error)
	Get(table, key string, out any) (bool, error)
}

// Provider serves price series from a cache in front of a source.
type Provider struct {
	source Source
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
	log    zerolog.Logger
}

// NewProvider creates a provider. cache may be nil, which disables caching.
// ttl <= 0 uses clientdata.TTLPriceSeries.
func NewProvider(source Source, cache Cache, ttl time.Duration, log zerolog.Logger) *Provider {
	if ttl <= 0 {
		ttl = clientdata.TTLPriceSeries
	}
	return &Provider{
		source: source,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		log:    log.With().Str("service", "prices").Str("source", source.Name()).Logger(),
	}
}

// GetSeries returns one series per ticker that has data in [start, end]. Unknown
// tickers and tickers without bars are left out of the map. When adjusted is set the
// series carries dividend-adjusted closes, otherwise raw closes.
func (p *Provider) GetSeries(ctx context.Context, tickers []string, start, end time.Time, adjusted bool) (map[string]domain.PriceSeries, error) {
	start = domain.TruncateDay(start)
	end = domain.TruncateDay(end)

	var mu sync.Mutex
	out := make(map[string]domain.PriceSeries, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(t))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true

		g.Go(func() error {
			bars, err := p.bars(gctx, ticker, start, end)
			if errors.Is(err, domain.ErrTickerNotFound) {
				p.log.Warn().Str("ticker", ticker).Msg("Ticker not found at price source")
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: %s: %w", domain.ErrPriceSource, ticker, err)
			}
			if len(bars) == 0 {
				return nil
			}

			mu.Lock()
			out[ticker] = domain.SeriesFromBars(ticker, bars, adjusted)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// bars loads the raw bars of one ticker. Identical concurrent requests share one
// load; it runs detached from any single caller, and each caller waits on its own ctx.
func (p *Provider) bars(ctx context.Context, ticker string, start, end time.Time) ([]domain.DailyBar, error) {
	key := cacheKey(p.source.Name(), ticker, start, end)
	ch := p.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return p.load(loadCtx, key, ticker, start, end)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			p.log.Debug().Str("ticker", ticker).Msg("Shared in-flight price load")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.DailyBar), nil
	}
}

func (p *Provider) load(ctx context.Context, key, ticker string, start, end time.Time) ([]domain.DailyBar, error) {
	if bars, ok := p.fromCache(key, true); ok {
		p.log.Debug().Str("ticker", ticker).Msg("Price cache hit")
		return bars, nil
	}

	bars, err := p.source.FetchDaily(ctx, ticker, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrTickerNotFound) {
			return nil, err
		}
		if stale, ok := p.fromCache(key, false); ok {
			p.log.Warn().
				Err(err).
				Str("ticker", ticker).
				Msg("Price source failed, using stale cached data")
			return stale, nil
		}
		return nil, err
	}

	p.toCache(key, ticker, bars, end)
	return bars, nil
}

func (p *Provider) fromCache(key string, freshOnly bool) ([]domain.DailyBar, bool) {
	if p.cache == nil {
		return nil, false
	}

	var bars []domain.DailyBar
	get := p.cache.Get
	if freshOnly {
		get = p.cache.GetIfFresh
	}
	ok, err := get(clientdata.TablePriceSeries, key, &bars)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("Failed to read price cache")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	// decoded times come back in the local zone
	for i := range bars {
		bars[i].Date = domain.TruncateDay(bars[i].Date.UTC())
	}
	return bars, true
}

func (p *Provider) toCache(key, ticker string, bars []domain.DailyBar, end time.Time) {
	if p.cache == nil || len(bars) == 0 {
		return
	}

	ttl := p.ttl
	if end.Before(domain.TruncateDay(p.now().UTC())) {
		ttl = clientdata.TTLHistoricalSeries
	}
	if err := p.cache.Store(clientdata.TablePriceSeries, key, bars, ttl); err != nil {
		p.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache price series")
	}
}

func cacheKey(source, ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", source, ticker, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
}
