package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job" }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestIntervalSchedule(t *testing.T) {
	_, err := NewIntervalSchedule(0)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	s, err := NewIntervalSchedule(time.Minute)
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 10, 0, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC), s.Next(at))
	assert.Equal(t, time.Date(2025, 6, 1, 10, 2, 0, 0, time.UTC), s.Next(s.Next(at)))
	assert.Equal(t, "@every 1m0s", s.String())
}

func TestScheduler_RunDueSkipsInFlight(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	s := NewScheduler(SchedulerConfig{Clock: clock.Now})

	release := make(chan struct{})
	var runs atomic.Int64
	job := funcJob{name: "slow", run: func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}}
	sched, err := NewIntervalSchedule(time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Register(job, sched))
	assert.ErrorIs(t, s.Register(job, sched), ErrJobAlreadyExists)

	ctx := context.Background()
	s.runDue(ctx)
	assert.EqualValues(t, 0, runs.Load(), "not due yet")

	clock.Advance(time.Minute)
	s.runDue(ctx)
	clock.Advance(time.Minute)
	s.runDue(ctx)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	_, err = s.RunNow(ctx, "slow")
	assert.ErrorIs(t, err, ErrJobBusy)

	close(release)
	s.wg.Wait()
	assert.EqualValues(t, 1, runs.Load(), "overlapping run skipped")

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.EqualValues(t, 1, infos[0].RunCount)
}

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (o *recordingObserver) ObserveJob(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func TestScheduler_RunNow(t *testing.T) {
	obs := &recordingObserver{}
	s := NewScheduler(SchedulerConfig{Observer: obs})

	boom := errors.New("boom")
	sched, err := NewIntervalSchedule(time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Register(funcJob{name: "failing", run: func(context.Context) error { return boom }}, sched))

	res, err := s.RunNow(context.Background(), "failing")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failing", res.JobName)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Equal(t, []error{boom}, obs.errs)
	assert.EqualValues(t, 1, s.ListJobs()[0].FailCount)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(SchedulerConfig{TickInterval: time.Millisecond})

	var cancelled atomic.Bool
	started := make(chan struct{})
	var once sync.Once
	sched, err := NewIntervalSchedule(time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, s.Register(funcJob{name: "wait", run: func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}}, sched))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job never started")
	}

	require.NoError(t, s.Stop())
	assert.True(t, cancelled.Load(), "stop cancels running jobs")
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}
