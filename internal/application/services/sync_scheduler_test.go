package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/providersync/internal/application/services"
	"github.com/zatekoja/providersync/pkg/tenant"
)

type countingJob struct {
	name       string
	runs       atomic.Int32
	active     atomic.Int32
	maxActive  atomic.Int32
	hold       time.Duration
	mu         sync.Mutex
	tenants    []string
	blockUntil bool
	// ignoreCancel holds for the full duration even after ctx is done.
	ignoreCancel bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	active := j.active.Add(1)
	defer j.active.Add(-1)
	for {
		current := j.maxActive.Load()
		if active <= current || j.maxActive.CompareAndSwap(current, active) {
			break
		}
	}
	j.runs.Add(1)

	if tc, ok := tenant.FromContext(ctx); ok {
		j.mu.Lock()
		j.tenants = append(j.tenants, tc.InstitutionID)
		j.mu.Unlock()
	}

	if j.ignoreCancel {
		time.Sleep(j.hold)
		return ctx.Err()
	}
	if j.blockUntil {
		<-ctx.Done()
		return ctx.Err()
	}
	select {
	case <-time.After(j.hold):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func newTestScheduler(t *testing.T, jobs ...*countingJob) *services.SyncScheduler {
	return newTestSchedulerWithTimeout(t, time.Second, jobs...)
}

func newTestSchedulerWithTimeout(t *testing.T, shutdownTimeout time.Duration, jobs ...*countingJob) *services.SyncScheduler {
	tc, err := tenant.New("COBALT", "en-US", "America/New_York")
	require.NoError(t, err)

	schedules := make([]services.Schedule, 0, len(jobs))
	for _, job := range jobs {
		schedules = append(schedules, services.Schedule{Job: job, InitialDelay: time.Millisecond, Delay: 5 * time.Millisecond})
	}
	return services.NewSyncScheduler(tc, shutdownTimeout, nil, schedules...)
}

func TestSyncScheduler_StartStopTransitions(t *testing.T) {
	scheduler := newTestScheduler(t, &countingJob{name: "availability"})

	assert.False(t, scheduler.Stop(), "stopping an idle scheduler is a no-op")
	assert.True(t, scheduler.Start())
	assert.False(t, scheduler.Start(), "second start reports already started")
	assert.True(t, scheduler.IsStarted())

	assert.True(t, scheduler.Stop())
	assert.False(t, scheduler.Stop())
	assert.False(t, scheduler.IsStarted())

	assert.True(t, scheduler.Start(), "scheduler can be restarted")
	assert.True(t, scheduler.Stop())
}

func TestSyncScheduler_RunsJobsRepeatedlyWithTenant(t *testing.T) {
	availability := &countingJob{name: "availability", hold: 2 * time.Millisecond}
	appointmentTypes := &countingJob{name: "appointment-types"}
	scheduler := newTestScheduler(t, availability, appointmentTypes)

	require.True(t, scheduler.Start())
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return availability.runs.Load() >= 3 && appointmentTypes.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), availability.maxActive.Load(), "runs of one job never overlap")

	availability.mu.Lock()
	assert.Equal(t, "COBALT", availability.tenants[0])
	availability.mu.Unlock()

	status := scheduler.Status()
	assert.True(t, status.Started)
	require.Len(t, status.Jobs, 2)
	assert.Equal(t, "availability", status.Jobs[0].Name)
	assert.NotNil(t, status.Jobs[0].LastStartedAt)
}

func TestSyncScheduler_StopInterruptsRunningJob(t *testing.T) {
	job := &countingJob{name: "availability", blockUntil: true}
	scheduler := newTestScheduler(t, job)

	require.True(t, scheduler.Start())
	require.Eventually(t, func() bool { return job.active.Load() == 1 }, time.Second, time.Millisecond)

	started := time.Now()
	assert.True(t, scheduler.Stop())
	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, int32(0), job.active.Load())

	runs := job.runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, runs, job.runs.Load(), "no runs after stop")
}

func TestSyncScheduler_RestartAfterStopTimeoutDoesNotOverlapRuns(t *testing.T) {
	job := &countingJob{name: "availability", hold: 300 * time.Millisecond, ignoreCancel: true}
	scheduler := newTestSchedulerWithTimeout(t, 50*time.Millisecond, job)

	require.True(t, scheduler.Start())
	require.Eventually(t, func() bool { return job.active.Load() == 1 }, time.Second, time.Millisecond)

	assert.True(t, scheduler.Stop())
	assert.Equal(t, int32(1), job.active.Load(), "abandoned run is still in progress")
	require.True(t, scheduler.Start())

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), job.maxActive.Load())

	scheduler.Stop()
}
