package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/thejonthinator/frysen/pkg/logger"
	"github.com/thejonthinator/frysen/pkg/metrics"
)

const defaultInterval = 120 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval applies to jobs that do not report their own.
	Interval time.Duration
}

// Service runs each registered job on its own ticker.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// NewService builds a cron service. Without a lock, jobs are only kept from
// overlapping within this process.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run runs every job once, then on its interval, until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs := s.registry.Jobs()
	if len(jobs) == 0 {
		s.logg.Info(ctx, "no cron jobs registered")
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan struct{}, len(jobs))
	for _, job := range jobs {
		go func(job Job) {
			defer func() { done <- struct{}{} }()
			s.loop(ctx, job)
		}(job)
	}
	for range jobs {
		<-done
	}
	s.logg.Info(ctx, "cron service context canceled")
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, job Job) {
	s.RunJob(ctx, job)
	ticker := time.NewTicker(s.intervalFor(job))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunJob(ctx, job)
		}
	}
}

func (s *Service) intervalFor(job Job) time.Duration {
	if scheduled, ok := job.(Scheduled); ok && scheduled.Interval() > 0 {
		return scheduled.Interval()
	}
	return s.interval
}

// RunJob runs one job under its lock and records the outcome. It reports
// whether the job ran.
func (s *Service) RunJob(ctx context.Context, job Job) bool {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})

	locked, err := s.lock.Acquire(jobCtx, job.Name())
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.recordFailure(job.Name())
		return false
	}
	if !locked {
		s.logg.Info(jobCtx, "job already running elsewhere; skipping")
		return false
	}
	defer func() {
		if relErr := s.lock.Release(jobCtx, job.Name()); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Debug(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return true
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
	return true
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
