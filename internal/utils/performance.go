package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Slow operation thresholds.
const (
	slowInfoThreshold = 10 * time.Second
	slowWarnThreshold = 30 * time.Second
)

// Timer measures one operation and logs its duration when stopped.
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer with the given operation name.
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop logs the elapsed time and returns it. Slow operations are promoted
// to Info (>10s) or Warn (>30s).
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	switch {
	case duration > slowWarnThreshold:
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow operation detected (>30s)")
	case duration > slowInfoThreshold:
		t.log.Info().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Operation took longer than expected (>10s)")
	}

	return duration
}

// OperationTimer returns a function that stops the timer. Use with defer:
//
//	defer utils.OperationTimer("render_plots", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	timer := NewTimer(operation, log)
	return func() {
		timer.Stop()
	}
}
