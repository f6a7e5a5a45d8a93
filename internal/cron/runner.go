package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// Job is one scheduled task executed by the runner.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// RunnerParams configure the cron runner.
type RunnerParams struct {
	Logger   *logger.Logger
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	Jobs     []Job
}

// Runner executes the registered jobs on a fixed cadence, guarded by a
// distributed lock so only one worker instance runs a cycle.
type Runner struct {
	log      *logger.Logger
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	jobs     []Job
}

// NewRunner builds a cron runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return &Runner{
		log:      params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		jobs:     jobs,
	}, nil
}

// Run starts the cron loop until the context is canceled. The first cycle
// fires immediately.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.runCycle(ctx); err != nil {
		r.log.Error(ctx, "scheduled run failed", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info(ctx, "cron runner context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := r.runCycle(ctx); err != nil {
				r.log.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) error {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		r.log.Info(ctx, "another cron instance holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if relErr := r.lock.Release(ctx); relErr != nil {
			r.log.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	for _, job := range r.jobs {
		r.runJob(ctx, job)
	}
	return nil
}

func (r *Runner) runJob(ctx context.Context, job Job) {
	jobCtx := r.log.WithField(ctx, "job", job.Name())
	r.log.Info(jobCtx, "job start")

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	r.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = r.log.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		r.log.Error(jobCtx, "job failed", err)
		r.metrics.IncFailure(job.Name())
		return
	}
	r.log.Info(jobCtx, "job completed")
	r.metrics.IncSuccess(job.Name())
}
