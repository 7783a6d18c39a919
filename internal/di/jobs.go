package di

import (
	"fmt"

	"github.com/aristath/etfbacktest/internal/clientdata"
	"github.com/aristath/etfbacktest/internal/config"
	"github.com/aristath/etfbacktest/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the maintenance jobs and schedules them.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container must be initialized before registering jobs")
	}

	instances := &JobInstances{
		CacheCleanup:   clientdata.NewCleanupJob(container.CacheRepo, log),
		WALCheckpoints: scheduler.NewCheckWALCheckpointsJob(log, container.CacheDB),
	}

	if err := container.Scheduler.AddJob(cfg.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", instances.CacheCleanup.Name(), err)
	}
	if err := container.Scheduler.AddJob(cfg.WALCheckSchedule, instances.WALCheckpoints); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", instances.WALCheckpoints.Name(), err)
	}

	return instances, nil
}
