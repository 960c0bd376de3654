package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/config"
	"github.com/aristath/networth/internal/scheduler"
)

// RegisterJobs creates the maintenance jobs and registers them on the scheduler.
// The scheduler is created but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		FXRefresh:         scheduler.NewFXRefreshJob(container.Normalizer, cfg.FXTimeout, log),
		WALCheckpoints:    scheduler.NewCheckWALCheckpointsJob(container.Databases(), log),
		CheckDatabases:    scheduler.NewCheckDatabasesJob(container.Databases(), log),
		ClientDataCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
	}

	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.FXRefreshSchedule, instances.FXRefresh},
		{"0 */15 * * * *", instances.WALCheckpoints},
		{"0 30 3 * * *", instances.CheckDatabases},
		{"0 0 * * * *", instances.ClientDataCleanup},
	}
	for _, r := range registrations {
		if err := container.Scheduler.AddJob(r.schedule, r.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", r.job.Name(), err)
		}
	}

	return instances, nil
}
