package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts one worker pool per registered task type and blocks until ctx
// is cancelled. In-flight handlers finish before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	if m.backend == nil {
		return ErrBackendUnavailable
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, taskType := range m.Types() {
		qc := m.QueueConfig(taskType)
		m.logger.Info("starting worker pool",
			zap.String("type", taskType),
			zap.Int("workers", qc.Workers),
		)
		for i := 0; i < qc.Workers; i++ {
			g.Go(func() error {
				m.work(gctx, taskType, qc.PollInterval)
				return nil
			})
		}
	}
	return g.Wait()
}

func (m *Manager) work(ctx context.Context, taskType string, poll time.Duration) {
	for ctx.Err() == nil {
		processed, err := m.ProcessNext(ctx, taskType)
		if err != nil {
			m.logger.Warn("worker iteration failed", zap.String("type", taskType), zap.Error(err))
		}
		if processed && err == nil {
			continue
		}
		if !sleep(ctx, poll) {
			return
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Sleep is the context-aware wait used between inline retries.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if !sleep(ctx, d) {
		return ctx.Err()
	}
	return nil
}
