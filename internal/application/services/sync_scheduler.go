package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thejerf/suture/v4"

	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	"github.com/zatekoja/providersync/pkg/config"
	"github.com/zatekoja/providersync/pkg/tenant"
)

// Job is a unit of background work run on a fixed delay
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule runs Job first after InitialDelay and then Delay after each run
// finishes. Runs of the same job never overlap.
type Schedule struct {
	Job          Job
	InitialDelay time.Duration
	Delay        time.Duration
}

// DefaultSchedules builds the availability and appointment type schedules from cfg
func DefaultSchedules(cfg config.SyncEngineConfig, availability, appointmentTypes Job) []Schedule {
	return []Schedule{
		{Job: availability, InitialDelay: cfg.AvailabilityInitialDelay, Delay: cfg.AvailabilityDelay},
		{Job: appointmentTypes, InitialDelay: cfg.AppointmentTypeInitialDelay, Delay: cfg.AppointmentTypeDelay},
	}
}

// JobStatus reports the recent history of one scheduled job
type JobStatus struct {
	Name           string     `json:"name"`
	Running        bool       `json:"running"`
	Runs           int64      `json:"runs"`
	Failures       int64      `json:"failures"`
	LastStartedAt  *time.Time `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
}

// SchedulerStatus is a point-in-time view of the scheduler
type SchedulerStatus struct {
	Started bool        `json:"started"`
	Jobs    []JobStatus `json:"jobs"`
}

// SyncScheduler owns the lifecycle of the sync jobs. Jobs are supervised so
// a panicking run is logged and the job restarted after a backoff.
type SyncScheduler struct {
	mu              sync.Mutex
	started         bool
	cancel          context.CancelFunc
	done            <-chan error
	jobs            []*fixedDelayJob
	shutdownTimeout time.Duration
}

// NewSyncScheduler creates a scheduler that runs every schedule on behalf of tc
func NewSyncScheduler(tc tenant.Context, shutdownTimeout time.Duration, metrics *observability.SyncMetrics, schedules ...Schedule) *SyncScheduler {
	jobs := make([]*fixedDelayJob, 0, len(schedules))
	for _, schedule := range schedules {
		jobs = append(jobs, &fixedDelayJob{
			job:          schedule.Job,
			initialDelay: schedule.InitialDelay,
			delay:        schedule.Delay,
			tenant:       tc,
			metrics:      metrics,
			slot:         make(chan struct{}, 1),
		})
	}
	return &SyncScheduler{jobs: jobs, shutdownTimeout: shutdownTimeout}
}

// Start launches every job. It returns false if the scheduler was already running.
func (s *SyncScheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return false
	}

	logger := observability.GetLogger()
	supervisor := suture.New("sync-scheduler", suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warn().Fields(e.Map()).Msg(e.String())
		},
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          s.shutdownTimeout,
	})
	for _, job := range s.jobs {
		supervisor.Add(job)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = supervisor.ServeBackground(ctx)
	s.started = true

	logger.Info().Int("jobs", len(s.jobs)).Msg("Sync scheduler started")
	return true
}

// Stop cancels every job, interrupting runs in progress, and waits up to the
// shutdown timeout for them to exit. It returns false if the scheduler was
// not running.
func (s *SyncScheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return false
	}

	s.cancel()
	logger := observability.GetLogger()
	select {
	case err := <-s.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("Sync scheduler exited with error")
		}
	case <-time.After(s.shutdownTimeout):
		logger.Warn().Dur("timeout", s.shutdownTimeout).Msg("Timed out waiting for sync jobs to stop")
	}

	s.started = false
	s.cancel = nil
	s.done = nil

	logger.Info().Msg("Sync scheduler stopped")
	return true
}

// IsStarted reports whether the scheduler is running
func (s *SyncScheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Status reports the scheduler state and per-job history
func (s *SyncScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	status := SchedulerStatus{Started: started, Jobs: make([]JobStatus, 0, len(s.jobs))}
	for _, job := range s.jobs {
		status.Jobs = append(status.Jobs, job.status())
	}
	return status
}

// fixedDelayJob adapts a Job to suture.Service
type fixedDelayJob struct {
	job          Job
	initialDelay time.Duration
	delay        time.Duration
	tenant       tenant.Context
	metrics      *observability.SyncMetrics

	// slot admits one run at a time. A run abandoned by a Stop that timed out
	// still holds it, so a supervisor started afterwards waits for that run.
	slot chan struct{}

	mu    sync.Mutex
	stats JobStatus
}

func (j *fixedDelayJob) String() string { return j.job.Name() }

// Serve implements suture.Service
func (j *fixedDelayJob) Serve(ctx context.Context) error {
	timer := time.NewTimer(j.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case j.slot <- struct{}{}:
		}
		j.runOnce(ctx)
		<-j.slot
		timer.Reset(j.delay)
	}
}

func (j *fixedDelayJob) runOnce(ctx context.Context) {
	ctx = tenant.WithContext(ctx, j.tenant)
	logger := observability.GetLogger().With().
		Str("job", j.job.Name()).
		Str("run_id", uuid.NewString()).
		Logger()
	ctx = logger.WithContext(ctx)

	started := time.Now()
	j.begin(started)
	logger.Debug().Msg("Sync job started")

	err := j.job.Run(ctx)

	finished := time.Now()
	j.finish(finished, err)
	j.metrics.RecordSyncRun(ctx, j.job.Name(), finished.Sub(started), err)

	switch {
	case err == nil:
		logger.Debug().Dur("duration", finished.Sub(started)).Msg("Sync job finished")
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("Sync job interrupted")
	default:
		logger.Error().Err(err).Dur("duration", finished.Sub(started)).Msg("Sync job failed")
	}
}

func (j *fixedDelayJob) begin(at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.Running = true
	j.stats.LastStartedAt = &at
}

func (j *fixedDelayJob) finish(at time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.Running = false
	j.stats.Runs++
	j.stats.LastFinishedAt = &at
	j.stats.LastError = ""
	if err != nil {
		j.stats.Failures++
		j.stats.LastError = err.Error()
	}
}

func (j *fixedDelayJob) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	status := j.stats
	status.Name = j.job.Name()
	return status
}
