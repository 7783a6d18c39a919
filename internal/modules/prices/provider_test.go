package prices

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/etfbacktest/internal/clientdata"
	"github.com/aristath/etfbacktest/internal/database"
	"github.com/aristath/etfbacktest/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]domain.DailyBar
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]domain.DailyBar, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, domain.ErrTickerNotFound
	}
	return bars, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSource() *fakeSource {
	return &fakeSource{bars: map[string][]domain.DailyBar{
		"VTI": {
			{Date: day(2023, 1, 3), Close: 190, AdjClose: 185},
			{Date: day(2023, 1, 4), Close: 192, AdjClose: 187},
		},
		"BND": {
			{Date: day(2023, 1, 3), Close: 72, AdjClose: 70},
			{Date: day(2023, 1, 4), Close: 72.5, AdjClose: 70.4},
		},
		"EMPTY": {},
	}}
}

func newCache(t *testing.T) *clientdata.Repository {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database shared
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return clientdata.NewRepository(db)
}

func TestGetSeries_PicksCloseByAdjustedFlag(t *testing.T) {
	p := NewProvider(newSource(), nil, 0, zerolog.Nop())

	adjusted, err := p.GetSeries(context.Background(), []string{"VTI", "bnd"}, day(2023, 1, 1), day(2023, 1, 31), true)
	require.NoError(t, err)
	require.Contains(t, adjusted, "VTI")
	require.Contains(t, adjusted, "BND")
	assert.Equal(t, 185.0, adjusted["VTI"].Points[0].Price)
	assert.Equal(t, "BND", adjusted["BND"].Ticker)

	raw, err := p.GetSeries(context.Background(), []string{"VTI"}, day(2023, 1, 1), day(2023, 1, 31), false)
	require.NoError(t, err)
	assert.Equal(t, 190.0, raw["VTI"].Points[0].Price)
}

func TestGetSeries_UnknownAndEmptyTickersAreAbsent(t *testing.T) {
	p := NewProvider(newSource(), nil, 0, zerolog.Nop())

	got, err := p.GetSeries(context.Background(), []string{"VTI", "NOPE", "EMPTY"}, day(2023, 1, 1), day(2023, 1, 31), true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "VTI")
}

func TestGetSeries_DedupesTickers(t *testing.T) {
	src := newSource()
	p := NewProvider(src, nil, 0, zerolog.Nop())

	_, err := p.GetSeries(context.Background(), []string{"VTI", "vti", " VTI "}, day(2023, 1, 1), day(2023, 1, 31), true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestGetSeries_SourceFailure(t *testing.T) {
	src := newSource()
	upstream := errors.New("connection refused")
	src.fail(upstream)
	p := NewProvider(src, nil, 0, zerolog.Nop())

	_, err := p.GetSeries(context.Background(), []string{"VTI"}, day(2023, 1, 1), day(2023, 1, 31), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPriceSource))
	assert.True(t, errors.Is(err, upstream))
}

func TestGetSeries_FreshCacheSkipsSource(t *testing.T) {
	src := newSource()
	p := NewProvider(src, newCache(t), time.Hour, zerolog.Nop())
	ctx := context.Background()

	first, err := p.GetSeries(ctx, []string{"VTI"}, day(2023, 1, 1), day(2023, 1, 31), true)
	require.NoError(t, err)
	second, err := p.GetSeries(ctx, []string{"VTI"}, day(2023, 1, 1), day(2023, 1, 31), true)
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	require.Len(t, second["VTI"].Points, 2)
	assert.Equal(t, first["VTI"].Points[1].Price, second["VTI"].Points[1].Price)
	assert.Equal(t, day(2023, 1, 3), second["VTI"].Points[0].Date)

	// a different window is a different cache entry
	_, err = p.GetSeries(ctx, []string{"VTI"}, day(2023, 1, 2), day(2023, 1, 31), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestGetSeries_StaleCacheFallback(t *testing.T) {
	src := newSource()
	cache := newCache(t)
	p := NewProvider(src, cache, time.Hour, zerolog.Nop())
	ctx := context.Background()

	// seed an expired entry
	key := cacheKey("fake", "VTI", day(2023, 1, 1), day(2023, 1, 31))
	require.NoError(t, cache.Store(clientdata.TablePriceSeries, key, src.bars["VTI"], -time.Hour))

	src.fail(errors.New("503"))
	got, err := p.GetSeries(ctx, []string{"VTI"}, day(2023, 1, 1), day(2023, 1, 31), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 190.0, got["VTI"].Points[0].Price)

	// no stale entry for BND
	_, err = p.GetSeries(ctx, []string{"BND"}, day(2023, 1, 1), day(2023, 1, 31), false)
	assert.True(t, errors.Is(err, domain.ErrPriceSource))
}

func TestGetSeries_ConcurrentCallersShareLoad(t *testing.T) {
	src := newSource()
	src.delay = 50 * time.Millisecond
	p := NewProvider(src, newCache(t), time.Hour, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.GetSeries(context.Background(), []string{"VTI"}, day(2023, 1, 1), day(2023, 1, 31), true)
			assert.NoError(t, err)
			assert.Contains(t, got, "VTI")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

// gatedSource holds SHARED until released and fails BAD on demand.
type gatedSource struct {
	started chan struct{}
	release chan struct{}
	failNow chan struct{}
	calls   atomic.Int32
}

func (g *gatedSource) Name() string { return "gated" }

func (g *gatedSource) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]domain.DailyBar, error) {
	switch ticker {
	case "SHARED":
		g.calls.Add(1)
		close(g.started)
		select {
		case <-g.release:
			return []domain.DailyBar{{Date: day(2023, 1, 3), Close: 10, AdjClose: 10}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case "BAD":
		<-g.failNow
		return nil, errors.New("upstream 500")
	}
	return nil, domain.ErrTickerNotFound
}

func TestGetSeries_FailedRequestDoesNotCancelSharedLoad(t *testing.T) {
	src := &gatedSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		failNow: make(chan struct{}),
	}
	p := NewProvider(src, nil, time.Hour, zerolog.Nop())
	start, end := day(2023, 1, 1), day(2023, 1, 31)

	errA := make(chan error, 1)
	go func() {
		_, err := p.GetSeries(context.Background(), []string{"SHARED", "BAD"}, start, end, true)
		errA <- err
	}()
	<-src.started

	type result struct {
		series map[string]domain.PriceSeries
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		got, err := p.GetSeries(context.Background(), []string{"SHARED"}, start, end, true)
		resB <- result{got, err}
	}()
	// let the second request join the in-flight load
	time.Sleep(50 * time.Millisecond)

	close(src.failNow)
	err := <-errA
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPriceSource)
	assert.Contains(t, err.Error(), "BAD")

	close(src.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Contains(t, b.series, "SHARED")
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestToCache_HistoricalWindowsLiveLonger(t *testing.T) {
	cache := &recordingCache{}
	p := NewProvider(newSource(), cache, time.Hour, zerolog.Nop())
	p.now = func() time.Time { return day(2024, 6, 1) }

	p.toCache("k1", "VTI", newSource().bars["VTI"], day(2023, 12, 31))
	p.toCache("k2", "VTI", newSource().bars["VTI"], day(2024, 6, 1))
	p.toCache("k3", "VTI", nil, day(2024, 6, 1))

	assert.Equal(t, []time.Duration{clientdata.TTLHistoricalSeries, time.Hour}, cache.ttls)
}

type recordingCache struct {
	ttls []time.Duration
}

func (c *recordingCache) Store(table, key string, data any, ttl time.Duration) error {
	c.ttls = append(c.ttls, ttl)
	return nil
}

func (c *recordingCache) GetIfFresh(table, key string, out any) (bool, error) { return false, nil }

func (c *recordingCache) Get(table, key string, out any) (bool, error) { return false, nil }
