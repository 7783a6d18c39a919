package clientdata

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SweepResult summarizes one pass of the price cache sweeper.
type SweepResult struct {
	ExpiredSeries   int64         `json:"expired_series"`
	RemainingSeries int64         `json:"remaining_series"`
	Duration        time.Duration `json:"duration"`
	At              time.Time     `json:"at"`
}

// CleanupJob drops price histories whose TTL has lapsed so the cache file
// does not grow with every distinct backtest window.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger

	mu   sync.Mutex
	last SweepResult
}

func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

func (j *CleanupJob) Run() error {
	started := j.repo.now()

	expired, err := j.repo.DeleteExpired(TablePriceSeries)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to sweep expired price series")
		return err
	}
	remaining, err := j.repo.Count(TablePriceSeries)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to count cached price series")
		return err
	}

	res := SweepResult{
		ExpiredSeries:   expired,
		RemainingSeries: remaining,
		Duration:        j.repo.now().Sub(started),
		At:              started,
	}
	j.mu.Lock()
	j.last = res
	j.mu.Unlock()

	ev := j.log.Debug()
	if expired > 0 {
		ev = j.log.Info()
	}
	ev.Int64("expired_series", expired).
		Int64("remaining_series", remaining).
		Dur("took", res.Duration).
		Msg("Price cache swept")
	return nil
}

// LastSweep returns the result of the most recent successful run.
func (j *CleanupJob) LastSweep() SweepResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
