// Package scheduler runs periodic maintenance: retention purge of finished
// tasks, cache sweeps and analytics snapshots.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/dispatch"
	"github.com/jonathan/resume-matcher/internal/pipeline"
	"github.com/jonathan/resume-matcher/internal/queue"
)

// DefaultRetention is how long completed tasks are kept when Config leaves it unset.
const DefaultRetention = 24 * time.Hour

// Purger drops completed tasks that finished before a cutoff.
type Purger interface {
	PurgeCompleted(ctx context.Context, before time.Time) (int, error)
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// Enqueuer submits tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any, opts queue.Options) (dispatch.Handle, error)
}

// Config holds cron specs ("@every 1h", "0 3 * * *"). An empty spec or a nil
// dependency disables the job.
type Config struct {
	PurgeSpec     string
	SweepSpec     string
	AnalyticsSpec string
	Retention     time.Duration
}

// Deps are the jobs' collaborators.
type Deps struct {
	Purger   Purger
	Sweeper  Sweeper
	Enqueuer Enqueuer
	Now      func() time.Time
}

// Scheduler wraps robfig/cron and owns the maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	deps   Deps
	logger *zap.Logger
	jobs   []string
}

// New creates a Scheduler. Jobs are registered by Start.
func New(cfg Config, deps Deps, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Start registers the enabled jobs and starts the cron loop. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name    string
		spec    string
		enabled bool
		run     func(context.Context)
	}{
		{"purge", s.cfg.PurgeSpec, s.deps.Purger != nil, s.Purge},
		{"sweep", s.cfg.SweepSpec, s.deps.Sweeper != nil, func(context.Context) { s.Sweep() }},
		{"analytics", s.cfg.AnalyticsSpec, s.deps.Enqueuer != nil, s.Analytics},
	}
	for _, job := range jobs {
		if job.spec == "" || !job.enabled {
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule %s job %q: %w", job.name, job.spec, err)
		}
		s.jobs = append(s.jobs, job.name)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Strings("jobs", s.jobs))
	return nil
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.jobs...)
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Purge removes tasks completed more than Retention ago.
func (s *Scheduler) Purge(ctx context.Context) {
	before := s.deps.Now().Add(-s.cfg.Retention)
	n, err := s.deps.Purger.PurgeCompleted(ctx, before)
	if err != nil {
		s.logger.Warn("purge failed", zap.Error(err))
		return
	}
	s.logger.Info("purged completed tasks", zap.Int("count", n), zap.Time("before", before))
}

// Sweep drops expired cache entries.
func (s *Scheduler) Sweep() {
	n := s.deps.Sweeper.Sweep()
	s.logger.Debug("cache swept", zap.Int("removed", n))
}

// Analytics enqueues a catalog snapshot. For parseable specs "since" is one
// schedule interval before now.
func (s *Scheduler) Analytics(ctx context.Context) {
	payload := map[string]any{"subjectId": "all"}
	if sched, err := cron.ParseStandard(s.cfg.AnalyticsSpec); err == nil {
		now := s.deps.Now()
		next := sched.Next(now)
		payload["since"] = now.Add(-next.Sub(now)).UTC().Format(time.RFC3339)
	}
	handle, err := s.deps.Enqueuer.Enqueue(ctx, pipeline.TypeAnalytics, payload, queue.Options{})
	if err != nil {
		s.logger.Warn("failed to enqueue analytics", zap.Error(err))
		return
	}
	s.logger.Info("analytics enqueued", zap.String("task_id", handle.TaskID), zap.String("mode", string(handle.Mode)))
}
