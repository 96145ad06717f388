package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 30 18 * * *", &countingJob{name: "snapshot_rebuild"}))
	require.NoError(t, s.AddJob("@daily", &countingJob{name: "backup"}))

	err := s.AddJob("@hourly", &countingJob{name: "backup"})
	assert.Error(t, err, "duplicate name")

	err = s.AddJob("not a schedule", &countingJob{name: "broken"})
	assert.Error(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "backup", jobs[0].Name)
	assert.Equal(t, "snapshot_rebuild", jobs[1].Name)
	assert.Equal(t, "0 30 18 * * *", jobs[1].Schedule)
}

func TestRunNowRecordsErrors(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "flaky", err: errors.New("provider down")}
	require.NoError(t, s.AddJob("@daily", job))

	err := s.RunByName("flaky")
	require.Error(t, err)
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, "provider down", s.Jobs()[0].LastError)
	assert.False(t, s.Jobs()[0].LastRun.IsZero())

	job.err = nil
	require.NoError(t, s.RunNow(job))
	assert.Empty(t, s.Jobs()[0].LastError)

	assert.Error(t, s.RunByName("missing"))
}

func TestScheduledExecution(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.False(t, s.Jobs()[0].Next.IsZero())
}
