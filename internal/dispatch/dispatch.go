// Package dispatch routes task submissions to the queue when it is available
// and runs them inline otherwise, so callers see the same contract either way.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/types"
)

// Mode reports how a submission was executed.
type Mode string

// Execution modes
const (
	ModeQueued Mode = "queued"
	ModeInline Mode = "inline"
)

// InlinePrefix marks ids of tasks that ran inline.
const InlinePrefix = "inline-"

// Handle identifies a submitted task.
type Handle struct {
	TaskID string `json:"taskId"`
	Mode   Mode   `json:"mode"`
}

// Dispatcher submits tasks through a queue.Manager, falling back to inline
// execution when the queue backend is absent or failing.
type Dispatcher struct {
	manager *queue.Manager
	queued  bool
	logger  *zap.Logger

	mu     sync.Mutex
	inline map[string]*queue.Task
}

// New creates a dispatcher. The execution mode is decided once from caps.
func New(caps types.Capabilities, manager *queue.Manager, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		manager: manager,
		queued:  caps.QueueAvailable && manager.Available(),
		logger:  logger,
		inline:  make(map[string]*queue.Task),
	}
	if !d.queued {
		logger.Warn("task queue unavailable, running tasks inline")
	}
	return d
}

// Mode returns the default execution mode.
func (d *Dispatcher) Mode() Mode {
	if d.queued {
		return ModeQueued
	}
	return ModeInline
}

// Enqueue submits a task. Invalid input is returned synchronously in both
// modes. A backend failure degrades the call to inline execution.
func (d *Dispatcher) Enqueue(ctx context.Context, taskType string, payload any, opts queue.Options) (Handle, error) {
	if d.queued {
		id, err := d.manager.Enqueue(ctx, taskType, payload, opts)
		if err == nil {
			return Handle{TaskID: id, Mode: ModeQueued}, nil
		}
		if queue.IsInvalidInput(err) {
			return Handle{}, err
		}
		d.logger.Warn("enqueue failed, running task inline",
			zap.String("type", taskType),
			zap.Error(err),
		)
	}
	return d.runInline(ctx, taskType, payload, opts)
}

func (d *Dispatcher) newInlineTask(taskType string, payload any, opts queue.Options) (*queue.Task, error) {
	t, err := d.manager.NewTask(taskType, payload, opts)
	if err != nil {
		return nil, err
	}
	t.ID = InlinePrefix + t.ID
	d.record(t)
	return t, nil
}

// runInline executes the task and then its continuations breadth-first.
func (d *Dispatcher) runInline(ctx context.Context, taskType string, payload any, opts queue.Options) (Handle, error) {
	root, err := d.newInlineTask(taskType, payload, opts)
	if err != nil {
		return Handle{}, err
	}
	handle := Handle{TaskID: root.ID, Mode: ModeInline}

	pending := []*queue.Task{root}
	for len(pending) > 0 {
		t := pending[0]
		pending = pending[1:]

		conts, err := d.execute(ctx, t)
		if err != nil {
			return handle, err
		}
		for _, c := range conts {
			child, err := d.newInlineTask(c.Type, c.Payload, c.Options)
			if err != nil {
				d.logger.Error("failed to create inline continuation",
					zap.String("task_id", t.ID),
					zap.String("continuation", c.Type),
					zap.Error(err),
				)
				continue
			}
			pending = append(pending, child)
		}
	}
	return handle, nil
}

// execute runs t with in-place retries. It returns an error only when ctx
// ends while waiting between attempts.
func (d *Dispatcher) execute(ctx context.Context, t *queue.Task) ([]queue.Continuation, error) {
	progress := func(p int) {
		d.update(t.ID, func(stored *queue.Task) { stored.Progress = p })
	}

	for {
		started := d.manager.Now()
		t.Status = queue.StatusActive
		t.StartedAt = &started
		d.record(t)

		conts, err := d.manager.Execute(ctx, t, progress)
		if err == nil {
			completed := d.manager.Now()
			t.Status = queue.StatusCompleted
			t.Progress = 100
			t.CompletedAt = &completed
			t.LastError = ""
			d.record(t)
			return conts, nil
		}

		t.Attempt++
		t.LastError = err.Error()
		if t.Attempt >= t.MaxAttempts {
			d.bury(t, err)
			return nil, nil
		}

		t.Status = queue.StatusFailed
		d.record(t)
		delay := d.manager.RetryDelay(t.Type, t.Attempt)
		d.logger.Warn("inline task failed, retrying",
			zap.String("task_id", t.ID),
			zap.String("type", t.Type),
			zap.Int("attempt", t.Attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := queue.Sleep(ctx, delay); err != nil {
			t.LastError = err.Error()
			d.bury(t, err)
			return nil, fmt.Errorf("inline task %s interrupted: %w", t.ID, err)
		}
		t.Status = queue.StatusPending
		d.record(t)
	}
}

func (d *Dispatcher) bury(t *queue.Task, cause error) {
	t.Status = queue.StatusDead
	d.record(t)
	d.logger.Error("dead letter",
		zap.String("task_id", t.ID),
		zap.String("type", t.Type),
		zap.Int("attempts", t.Attempt),
		zap.ByteString("payload", t.Payload),
		zap.Error(cause),
	)
}

// record stores a snapshot of t in the inline status table.
func (d *Dispatcher) record(t *queue.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inline[t.ID] = t.Clone()
}

func (d *Dispatcher) update(id string, fn func(*queue.Task)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.inline[id]; ok {
		fn(t)
	}
}

// Status answers for queued and inline tasks alike.
func (d *Dispatcher) Status(ctx context.Context, id string) (queue.StatusReport, error) {
	if strings.HasPrefix(id, InlinePrefix) {
		d.mu.Lock()
		defer d.mu.Unlock()
		t, ok := d.inline[id]
		if !ok {
			return queue.StatusReport{}, queue.ErrTaskNotFound
		}
		return t.Report(), nil
	}
	if !d.manager.Available() {
		return queue.StatusReport{}, queue.ErrTaskNotFound
	}
	return d.manager.Status(ctx, id)
}

// Cancel cancels a pending queued task. Inline tasks have already run.
func (d *Dispatcher) Cancel(ctx context.Context, id string) error {
	if strings.HasPrefix(id, InlinePrefix) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.inline[id]; !ok {
			return queue.ErrTaskNotFound
		}
		return queue.ErrNotCancellable
	}
	if !d.manager.Available() {
		return queue.ErrTaskNotFound
	}
	return d.manager.Cancel(ctx, id)
}

// PurgeCompleted drops completed inline records and queued tasks that
// finished before the cutoff. Dead inline records go once their last attempt
// started before the cutoff; until then Status still reports them.
func (d *Dispatcher) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	d.mu.Lock()
	purged := 0
	for id, t := range d.inline {
		if inlineExpired(t, before) {
			delete(d.inline, id)
			purged++
		}
	}
	d.mu.Unlock()

	if !d.manager.Available() {
		return purged, nil
	}
	n, err := d.manager.PurgeCompleted(ctx, before)
	if err != nil && !errors.Is(err, queue.ErrBackendUnavailable) {
		return purged, err
	}
	return purged + n, nil
}

func inlineExpired(t *queue.Task, before time.Time) bool {
	switch t.Status {
	case queue.StatusCompleted:
		return t.CompletedAt != nil && t.CompletedAt.Before(before)
	case queue.StatusDead:
		return t.StartedAt != nil && t.StartedAt.Before(before)
	default:
		return false
	}
}
