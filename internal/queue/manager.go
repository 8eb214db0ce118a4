package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLeaseGrace is added to a queue's timeout to form a claim lease.
const DefaultLeaseGrace = 5 * time.Second

// Continuation is a follow-up task emitted by a successful handler.
type Continuation struct {
	Type    string
	Payload any
	Options Options
}

// Handler processes a claimed task and returns its continuations.
type Handler interface {
	Handle(ctx context.Context, t *Task) ([]Continuation, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t *Task) ([]Continuation, error)

func (f HandlerFunc) Handle(ctx context.Context, t *Task) ([]Continuation, error) {
	return f(ctx, t)
}

// Validator checks an encoded payload before it is stored.
type Validator func(payload json.RawMessage) error

// Config configures a Manager.
type Config struct {
	Queues     map[string]QueueConfig
	Graph      *Graph
	LeaseGrace time.Duration
	Now        func() time.Time
}

type registration struct {
	handler   Handler
	validator Validator
}

// Manager owns task registration, enqueueing and the worker pools.
type Manager struct {
	queues  map[string]QueueConfig
	graph   *Graph
	grace   time.Duration
	now     func() time.Time
	backend Backend
	logger  *zap.Logger

	mu       sync.RWMutex
	handlers map[string]registration
}

// NewManager creates a manager. backend may be nil, in which case Enqueue
// reports ErrBackendUnavailable and only Execute can be used.
func NewManager(cfg Config, backend Backend, logger *zap.Logger) (*Manager, error) {
	graph := cfg.Graph
	if graph == nil {
		graph = NewGraph()
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	grace := cfg.LeaseGrace
	if grace <= 0 {
		grace = DefaultLeaseGrace
	}
	queues := make(map[string]QueueConfig, len(cfg.Queues))
	for name, qc := range cfg.Queues {
		queues[name] = qc.withDefaults()
	}
	return &Manager{
		queues:   queues,
		graph:    graph,
		grace:    grace,
		now:      now,
		backend:  backend,
		logger:   logger,
		handlers: make(map[string]registration),
	}, nil
}

// Register binds a handler and optional validator to a declared task type.
func (m *Manager) Register(taskType string, h Handler, v Validator) error {
	if !m.graph.Has(taskType) {
		return &GraphError{Type: taskType, Message: "task type is not declared"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[taskType] = registration{handler: h, validator: v}
	return nil
}

// Types returns the registered task types in sorted order.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Graph returns the declared task-type graph.
func (m *Manager) Graph() *Graph {
	return m.graph
}

// Available reports whether a backend is configured.
func (m *Manager) Available() bool {
	return m.backend != nil
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.now()
}

// QueueConfig returns the effective settings for a task type.
func (m *Manager) QueueConfig(taskType string) QueueConfig {
	if qc, ok := m.queues[taskType]; ok {
		return qc
	}
	return DefaultQueueConfig()
}

// RetryDelay returns the backoff before the next attempt after attempt failures.
func (m *Manager) RetryDelay(taskType string, attempt int) time.Duration {
	qc := m.QueueConfig(taskType)
	return Backoff(qc.BackoffBase, qc.BackoffMax, attempt)
}

func (m *Manager) registration(taskType string) (registration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.handlers[taskType]
	return reg, ok
}

// NewTask validates a payload and builds a pending task without storing it.
func (m *Manager) NewTask(taskType string, payload any, opts Options) (*Task, error) {
	reg, ok := m.registration(taskType)
	if !ok {
		return nil, &InvalidInputError{Type: taskType, Reason: "unknown task type"}
	}
	if opts.MaxAttempts < 0 {
		return nil, &InvalidInputError{Type: taskType, Reason: "maxAttempts must not be negative"}
	}
	if opts.Delay < 0 {
		return nil, &InvalidInputError{Type: taskType, Reason: "delay must not be negative"}
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return nil, &InvalidInputError{Type: taskType, Reason: "payload is not valid JSON", Err: err}
	}
	if reg.validator != nil {
		if err := reg.validator(raw); err != nil {
			return nil, &InvalidInputError{Type: taskType, Reason: "payload rejected", Err: err}
		}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = m.QueueConfig(taskType).MaxAttempts
	}
	now := m.now()
	return &Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		Priority:    opts.Priority,
		Status:      StatusPending,
		CreatedAt:   now,
		NextRunAt:   now.Add(opts.Delay),
	}, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, fmt.Errorf("malformed payload")
		}
		return append(json.RawMessage(nil), p...), nil
	case []byte:
		if !json.Valid(p) {
			return nil, fmt.Errorf("malformed payload")
		}
		return append(json.RawMessage(nil), p...), nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

// Enqueue validates and stores a pending task, returning its id.
func (m *Manager) Enqueue(ctx context.Context, taskType string, payload any, opts Options) (string, error) {
	t, err := m.NewTask(taskType, payload, opts)
	if err != nil {
		return "", err
	}
	if m.backend == nil {
		return "", ErrBackendUnavailable
	}
	if err := m.backend.Enqueue(ctx, t); err != nil {
		return "", fmt.Errorf("%w: failed to enqueue %s task: %w", ErrBackendUnavailable, taskType, err)
	}
	m.logger.Debug("task enqueued",
		zap.String("task_id", t.ID),
		zap.String("type", taskType),
		zap.Int("priority", t.Priority),
	)
	return t.ID, nil
}

// Execute runs the registered handler for t under the queue timeout.
// Panics and timeouts are returned as errors, as are continuations along
// undeclared edges.
func (m *Manager) Execute(ctx context.Context, t *Task, progress ProgressFunc) ([]Continuation, error) {
	reg, ok := m.registration(t.Type)
	if !ok {
		return nil, fmt.Errorf("no handler registered for %s", t.Type)
	}
	qc := m.QueueConfig(t.Type)

	runCtx, cancel := context.WithTimeout(WithProgress(ctx, progress), qc.Timeout)
	defer cancel()

	type outcome struct {
		continuations []Continuation
		err           error
	}
	done := make(chan outcome, 1)
	work := t.Clone()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &HandlerPanicError{Value: r}}
			}
		}()
		conts, err := reg.handler.Handle(runCtx, work)
		done <- outcome{continuations: conts, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		out = outcome{err: fmt.Errorf("handler for %s exceeded timeout %s: %w", t.Type, qc.Timeout, runCtx.Err())}
	}
	if out.err != nil {
		return nil, out.err
	}

	for _, c := range out.continuations {
		if err := m.graph.CheckEdge(t.Type, c.Type); err != nil {
			return nil, err
		}
	}
	return out.continuations, nil
}

// ProcessNext claims and runs one task of the given type. It reports
// whether a task was claimed.
func (m *Manager) ProcessNext(ctx context.Context, taskType string) (bool, error) {
	if m.backend == nil {
		return false, ErrBackendUnavailable
	}
	qc := m.QueueConfig(taskType)
	t, err := m.backend.Claim(ctx, taskType, m.now().Add(qc.Timeout+m.grace))
	if err != nil {
		return false, fmt.Errorf("%w: failed to claim %s task: %w", ErrBackendUnavailable, taskType, err)
	}
	if t == nil {
		return false, nil
	}

	m.logger.Debug("task claimed",
		zap.String("task_id", t.ID),
		zap.String("type", t.Type),
		zap.Int("attempt", t.Attempt+1),
	)

	// State transitions are persisted even when ctx is cancelled mid-run.
	saveCtx := context.WithoutCancel(ctx)
	report := func(p int) {
		if err := m.backend.SetProgress(saveCtx, t.ID, p); err != nil {
			m.logger.Warn("failed to record progress", zap.String("task_id", t.ID), zap.Error(err))
		}
	}

	conts, runErr := m.Execute(ctx, t, report)
	if runErr != nil {
		return true, m.fail(saveCtx, t, runErr)
	}
	return true, m.complete(saveCtx, t, conts)
}

// complete enqueues the continuations, then marks t completed. A continuation
// that cannot be stored fails the attempt instead.
func (m *Manager) complete(ctx context.Context, t *Task, conts []Continuation) error {
	for _, c := range conts {
		id, err := m.Enqueue(ctx, c.Type, c.Payload, c.Options)
		if err != nil {
			return m.fail(ctx, t, fmt.Errorf("failed to enqueue continuation %s: %w", c.Type, err))
		}
		m.logger.Debug("continuation enqueued",
			zap.String("task_id", t.ID),
			zap.String("continuation", c.Type),
			zap.String("continuation_id", id),
		)
	}

	now := m.now()
	t.Status = StatusCompleted
	t.Progress = 100
	t.CompletedAt = &now
	t.LeaseUntil = nil
	t.LastError = ""
	if err := m.backend.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to complete task %s: %w", t.ID, err)
	}
	m.logger.Info("task completed", zap.String("task_id", t.ID), zap.String("type", t.Type))
	return nil
}

func (m *Manager) fail(ctx context.Context, t *Task, cause error) error {
	now := m.now()
	t.Attempt++
	t.LastError = cause.Error()
	t.LeaseUntil = nil

	if t.Attempt < t.MaxAttempts {
		delay := m.RetryDelay(t.Type, t.Attempt)
		t.Status = StatusPending
		t.NextRunAt = now.Add(delay)
		if err := m.backend.Save(ctx, t); err != nil {
			return fmt.Errorf("failed to reschedule task %s: %w", t.ID, err)
		}
		m.logger.Warn("task failed, retrying",
			zap.String("task_id", t.ID),
			zap.String("type", t.Type),
			zap.Int("attempt", t.Attempt),
			zap.Duration("backoff", delay),
			zap.Error(cause),
		)
		return nil
	}

	t.Status = StatusDead
	if err := m.backend.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to bury task %s: %w", t.ID, err)
	}
	m.logger.Error("dead letter",
		zap.String("task_id", t.ID),
		zap.String("type", t.Type),
		zap.Int("attempts", t.Attempt),
		zap.ByteString("payload", t.Payload),
		zap.Error(cause),
	)
	return nil
}

// Status returns the externally visible state of a task.
func (m *Manager) Status(ctx context.Context, id string) (StatusReport, error) {
	if m.backend == nil {
		return StatusReport{}, ErrBackendUnavailable
	}
	t, err := m.backend.Get(ctx, id)
	if err != nil {
		return StatusReport{}, err
	}
	return t.Report(), nil
}

// Cancel removes a task that has not been claimed yet.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if m.backend == nil {
		return ErrBackendUnavailable
	}
	if err := m.backend.Cancel(ctx, id); err != nil {
		return err
	}
	m.logger.Info("task cancelled", zap.String("task_id", id))
	return nil
}

// Dead lists dead-lettered tasks of a type.
func (m *Manager) Dead(ctx context.Context, taskType string) ([]*Task, error) {
	if m.backend == nil {
		return nil, ErrBackendUnavailable
	}
	return m.backend.Dead(ctx, taskType)
}

// PurgeCompleted deletes completed tasks that finished before the cutoff.
func (m *Manager) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	if m.backend == nil {
		return 0, ErrBackendUnavailable
	}
	n, err := m.backend.PurgeCompleted(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge completed tasks: %w", err)
	}
	if n > 0 {
		m.logger.Info("purged completed tasks", zap.Int("count", n), zap.Time("before", before))
	}
	return n, nil
}

// Purge applies the longest configured retention across queues.
func (m *Manager) Purge(ctx context.Context) (int, error) {
	var retention time.Duration
	for _, qc := range m.queues {
		retention = max(retention, qc.Retention)
	}
	if retention == 0 {
		retention = DefaultQueueConfig().Retention
	}
	return m.PurgeCompleted(ctx, m.now().Add(-retention))
}
