package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/tracing"
)

const defaultInterval = time.Hour

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job on its own ticker. A job run is skipped
// when another replica holds that job's lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
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
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts one loop per job until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for _, job := range s.registry.Jobs() {
		group.Go(func() error {
			return s.loop(groupCtx, job)
		})
	}
	err := group.Wait()
	s.logg.Info(ctx, "cron service stopped")
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return err
}

func (s *Service) loop(ctx context.Context, job Job) error {
	interval := job.Interval()
	if interval <= 0 {
		interval = s.interval
	}
	s.runJob(ctx, job)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runJob(ctx, job)
		}
	}
}

// runJob executes a single locked run. Failures are logged and counted; the
// next tick re-selects whatever is still due.
func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	locked, err := s.lock.Acquire(jobCtx, job.Name())
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another cron instance holds the lock; skipping")
		s.metrics.IncSkipped(job.Name())
		return
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(jobCtx), job.Name()); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	jobCtx, span := tracing.StartSpan(jobCtx, "cron."+job.Name(), tracing.Job(job.Name()))
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	tracing.End(span, err)
	s.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
