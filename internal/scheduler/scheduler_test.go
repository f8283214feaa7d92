package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	assert.NoError(t, s.AddJob("0 */6 * * *", job))
	assert.NoError(t, s.AddJob("@every 1h", job))
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_AddJob_EmptyScheduleDisables(t *testing.T) {
	s := New(zerolog.Nop())

	assert.NoError(t, s.AddJob("", &countingJob{}))
	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_AddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("every tuesday", &countingJob{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "counting")
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(job)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	assert.NoError(t, s.AddJob("@every 1h", &countingJob{}))

	assert.NotPanics(t, func() {
		s.Start()
		s.Stop()
	})
}
