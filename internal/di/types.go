// Package di wires the application's dependencies.
package di

import (
	"github.com/aristath/etfbacktest/internal/clientdata"
	"github.com/aristath/etfbacktest/internal/database"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/modules/catalog"
	"github.com/aristath/etfbacktest/internal/modules/charts"
	"github.com/aristath/etfbacktest/internal/modules/optimization"
	"github.com/aristath/etfbacktest/internal/modules/prices"
	"github.com/aristath/etfbacktest/internal/scheduler"
)

// Container holds every long-lived dependency. Build it with Wire and release it
// with Close.
type Container struct {
	// Storage
	CacheDB   *database.DB
	CacheRepo *clientdata.Repository

	// Market data
	PriceSource prices.Source
	Prices      *prices.Provider
	Catalog     *catalog.Catalog

	// Services
	Charts          *charts.Renderer
	Optimizer       *optimization.FrontierOptimizer
	BacktestService *backtest.Service
	FrontierService *optimization.Service
	Scheduler       *scheduler.Scheduler
}

// JobInstances holds the maintenance jobs for scheduling and manual triggering.
type JobInstances struct {
	CacheCleanup   scheduler.Job
	WALCheckpoints scheduler.Job
}

// All returns the jobs as a slice.
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.CacheCleanup, j.WALCheckpoints}
}
