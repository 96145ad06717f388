package di

import (
	"fmt"
	"time"

	"github.com/aristath/journal/internal/clientdata"
	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/modules/snapshots"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/scheduler"
	"github.com/rs/zerolog"
)

// maintenanceSchedule runs integrity checks and WAL checkpoints at 03:15 daily
const maintenanceSchedule = "0 15 3 * * *"

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is returned unstarted.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	jobs := &JobInstances{Scheduler: sched}

	jobs.SnapshotRebuild = snapshots.NewRebuildJob(container.SnapshotService, 5*time.Minute, log)
	if err := sched.AddJob(cfg.SnapshotRebuildSchedule, jobs.SnapshotRebuild); err != nil {
		return nil, fmt.Errorf("failed to register snapshot rebuild job: %w", err)
	}

	jobs.CacheCleanup = clientdata.NewCleanupJob(container.CacheRepo, log)
	if err := sched.AddJob(cfg.CacheCleanupSchedule, jobs.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	maintained := make([]reliability.MaintainedDatabase, 0, 2)
	for _, db := range container.Databases() {
		maintained = append(maintained, db)
	}
	jobs.Maintenance = reliability.NewMaintenanceJob(maintained, cfg.DataDir, log)
	if err := sched.AddJob(maintenanceSchedule, jobs.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, 10*time.Minute, log)
		if err := sched.AddJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	log.Info().Int("jobs", len(sched.Jobs())).Msg("Jobs registered")
	return jobs, nil
}
