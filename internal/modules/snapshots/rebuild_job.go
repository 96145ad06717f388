package snapshots

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RebuildJob replays the journal and persists the series on a schedule
type RebuildJob struct {
	service *Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewRebuildJob creates the scheduled replay job
func NewRebuildJob(service *Service, timeout time.Duration, log zerolog.Logger) *RebuildJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &RebuildJob{
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "snapshot_rebuild").Logger(),
	}
}

// Run executes a full rebuild
func (j *RebuildJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.service.Rebuild(ctx, RebuildOptions{Persist: true})
	if err != nil {
		j.log.Error().Err(err).Msg("Scheduled snapshot rebuild failed")
		return err
	}
	if len(result.Unpriced) > 0 {
		j.log.Warn().Strs("unpriced", result.Unpriced).Msg("Some instruments had no price history")
	}
	return nil
}

// Name returns the job name for scheduling and logging
func (j *RebuildJob) Name() string {
	return "snapshot_rebuild"
}
