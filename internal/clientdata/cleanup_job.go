package clientdata

import (
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob prunes cache rows that expired more than a grace period ago
type CleanupJob struct {
	repo  *Repository
	grace time.Duration
	log   zerolog.Logger
}

// NewCleanupJob creates a cleanup job keeping expired rows for StaleGrace
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:  repo,
		grace: StaleGrace,
		log:   log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run prunes every cache table
func (j *CleanupJob) Run() error {
	start := time.Now()
	deleted, err := j.repo.DeleteAllExpired(j.grace)
	if err != nil {
		j.log.Error().Err(err).Msg("Cache cleanup failed")
		return err
	}

	var total int64
	for _, n := range deleted {
		total += n
	}

	event := j.log.Debug()
	if total > 0 {
		event = j.log.Info()
	}
	for table, n := range deleted {
		event = event.Int64(table, n)
	}
	event.Int64("total", total).
		Dur("grace", j.grace).
		Dur("duration_ms", time.Since(start)).
		Msg("Cache cleanup finished")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
