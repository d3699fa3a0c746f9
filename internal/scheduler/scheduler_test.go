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

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJobAndRun(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && job.runs.Load() == 0 {
		time.Sleep(50 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, job.runs.Load(), int32(1))
}

func TestScheduler_AddJobInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "manual"}
	require.NoError(t, s.AddJob("0 0 3 * * *", job))

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "manual", jobs[0].Name)
	assert.NotNil(t, jobs[0].LastRun)
	assert.Empty(t, jobs[0].LastErr)
}

func TestScheduler_RunNowRecordsError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "flaky", err: errors.New("boom")}
	require.NoError(t, s.AddJob("0 0 3 * * *", job))

	require.Error(t, s.RunNow(job))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "boom", jobs[0].LastErr)
}

func TestScheduler_JobsListsSchedules(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("0 0 2 * * *", &countingJob{name: "daily"}))
	require.NoError(t, s.AddJob("0 0 3 * * SUN", &countingJob{name: "weekly"}))

	jobs := s.Jobs()
	assert.Len(t, jobs, 2)
}
