package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/metrics"
)

// Job defines a periodic background job
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means unbounded
	Timeout time.Duration
	// AllowOverlap lets a tick start a new run while the previous one is
	// still going
	AllowOverlap bool
	Fn           func(ctx context.Context) error
}

// SchedulerService runs periodic jobs until stopped
type SchedulerService struct {
	logger  *core.Logger
	jobs    []Job
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(logger *core.Logger) *SchedulerService {
	return &SchedulerService{logger: logger}
}

// Add registers a job to be run when Start is called
func (s *SchedulerService) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Jobs returns the names of the registered jobs
func (s *SchedulerService) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name)
	}
	return names
}

// Running reports whether the scheduler has been started
func (s *SchedulerService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches every registered job. Each job runs immediately, then on
// its interval, until Stop is called or ctx is cancelled.
func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return core.NewConfigurationError("job "+job.Name+" has no interval", nil)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, job := range s.jobs {
		s.logger.Info("Starting job", "job", job.Name, "interval", job.Interval)
		s.wg.Add(1)
		go s.loop(runCtx, job)
	}

	return nil
}

// Stop cancels all jobs and waits for running ones to return
func (s *SchedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SchedulerService) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	s.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Job stopping", "job", job.Name)
			return
		case <-ticker.C:
			s.execute(ctx, job)
		}
	}
}

func (s *SchedulerService) execute(ctx context.Context, job Job) {
	if !job.AllowOverlap {
		s.run(ctx, job)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, job)
	}()
}

func (s *SchedulerService) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	err := job.Fn(ctx)
	metrics.RecordJob(job.Name, err)
	if err != nil {
		s.logger.Error("Job failed", "job", job.Name, "error", err)
	}
}
