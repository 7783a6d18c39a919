package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TablePriceSeries, "expired", testBars(), -time.Minute))
	require.NoError(t, repo.Store(TablePriceSeries, "fresh", testBars(), time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	var keys []string
	rows, err := db.Query("SELECT cache_key FROM price_series")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"fresh"}, keys)
}

func TestCleanupJobRun_RecordsSweep(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	require.NoError(t, repo.Store(TablePriceSeries, "yahoo:VTI:2020-01-01:2020-12-31", testBars(), -time.Minute))
	require.NoError(t, repo.Store(TablePriceSeries, "yahoo:BND:2020-01-01:2020-12-31", testBars(), -time.Hour))
	require.NoError(t, repo.Store(TablePriceSeries, "yahoo:VTI:2024-01-01:2024-05-31", testBars(), time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Zero(t, job.LastSweep())
	require.NoError(t, job.Run())

	sweep := job.LastSweep()
	assert.Equal(t, int64(2), sweep.ExpiredSeries)
	assert.Equal(t, int64(1), sweep.RemainingSeries)
	assert.Equal(t, now, sweep.At)

	require.NoError(t, job.Run())
	assert.Equal(t, int64(0), job.LastSweep().ExpiredSeries)
	assert.Equal(t, int64(1), job.LastSweep().RemainingSeries)
}

func TestCleanupJobRun_EmptyCache(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCleanupJobRun_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Error(t, job.Run())
	assert.Zero(t, job.LastSweep())
}
