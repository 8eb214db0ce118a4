package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func testGraph() *Graph {
	return NewGraph(
		TypeDefinition{Name: "first", Continuations: []string{"second"}},
		TypeDefinition{Name: "second"},
	)
}

func newTestManager(t *testing.T, clock *fakeClock, qc QueueConfig) (*Manager, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend(clock.Now)
	m, err := NewManager(Config{
		Queues: map[string]QueueConfig{"first": qc, "second": qc},
		Graph:  testGraph(),
		Now:    clock.Now,
	}, backend, zap.NewNop())
	require.NoError(t, err)
	return m, backend
}

func okHandler() Handler {
	return HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		return nil, nil
	})
}

func TestNewManager_RejectsInvalidGraph(t *testing.T) {
	_, err := NewManager(Config{
		Graph: NewGraph(TypeDefinition{Name: "a", Continuations: []string{"a"}}),
	}, NewMemoryBackend(nil), nil)
	require.Error(t, err)
}

func TestManager_RegisterUndeclaredType(t *testing.T) {
	m, _ := newTestManager(t, newClock(), QueueConfig{})
	err := m.Register("unknown", okHandler(), nil)
	var graphErr *GraphError
	require.True(t, errors.As(err, &graphErr))
}

func TestManager_EnqueueStoresPendingTask(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m, _ := newTestManager(t, clock, QueueConfig{MaxAttempts: 4})
	require.NoError(t, m.Register("first", okHandler(), nil))

	id, err := m.Enqueue(ctx, "first", map[string]string{"subjectId": "doc-1"}, Options{Priority: 2})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, report.Status)
	assert.Equal(t, 0, report.Progress)
	assert.Nil(t, report.CompletedAt)
}

func TestManager_EnqueueInvalidInputStoresNothing(t *testing.T) {
	ctx := context.Background()
	m, backend := newTestManager(t, newClock(), QueueConfig{})
	require.NoError(t, m.Register("first", okHandler(), func(payload json.RawMessage) error {
		return fmt.Errorf("subjectId is required")
	}))

	tests := []struct {
		name     string
		taskType string
		payload  any
		opts     Options
	}{
		{"unknown type", "nope", map[string]string{}, Options{}},
		{"validator rejects", "first", map[string]string{}, Options{}},
		{"malformed raw json", "first", json.RawMessage(`{"a":`), Options{}},
		{"negative attempts", "first", map[string]string{}, Options{MaxAttempts: -1}},
		{"negative delay", "first", map[string]string{}, Options{Delay: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Enqueue(ctx, tt.taskType, tt.payload, tt.opts)
			var inv *InvalidInputError
			require.True(t, errors.As(err, &inv), "got %v", err)
			assert.True(t, IsInvalidInput(err))
		})
	}
	assert.Equal(t, 0, backend.Len())
}

func TestManager_EnqueueWithoutBackend(t *testing.T) {
	m, err := NewManager(Config{Graph: testGraph()}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Register("first", okHandler(), nil))

	_, err = m.Enqueue(context.Background(), "first", nil, Options{})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.False(t, m.Available())
}

func TestManager_ProcessNextCompletesAndEnqueuesContinuation(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m, backend := newTestManager(t, clock, QueueConfig{})

	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		ReportProgress(ctx, 50)
		return []Continuation{{Type: "second", Payload: map[string]string{"from": task.ID}}}, nil
	}), nil))
	require.NoError(t, m.Register("second", okHandler(), nil))

	id, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)

	processed, err := m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	require.True(t, processed)

	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 100, report.Progress)
	require.NotNil(t, report.CompletedAt)
	assert.Equal(t, clock.Now(), *report.CompletedAt)
	assert.Equal(t, 2, backend.Len())

	processed, err = m.ProcessNext(ctx, "second")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestManager_UndeclaredContinuationFailsTask(t *testing.T) {
	ctx := context.Background()
	m, backend := newTestManager(t, newClock(), QueueConfig{MaxAttempts: 1})
	require.NoError(t, m.Register("second", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		return []Continuation{{Type: "first"}}, nil
	}), nil))

	id, err := m.Enqueue(ctx, "second", nil, Options{})
	require.NoError(t, err)
	_, err = m.ProcessNext(ctx, "second")
	require.NoError(t, err)

	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, report.Status)
	assert.Contains(t, report.Error, "undeclared continuation edge")
	assert.Equal(t, 1, backend.Len())
}

func TestManager_RetryBound(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m, _ := newTestManager(t, clock, QueueConfig{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		BackoffMax:  time.Minute,
	})

	var calls atomic.Int32
	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}), nil))

	id, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := m.ProcessNext(ctx, "first")
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	assert.Equal(t, int32(3), calls.Load())
	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, report.Status)
	assert.Equal(t, "boom", report.Error)
	assert.Equal(t, 3, report.Attempt)

	dead, err := m.Dead(ctx, "first")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].ID)
}

func TestManager_FailureReschedulesWithBackoff(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m, backend := newTestManager(t, clock, QueueConfig{
		MaxAttempts: 5,
		BackoffBase: 2 * time.Second,
		BackoffMax:  time.Minute,
	})
	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		return nil, errors.New("transient")
	}), nil))

	id, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)

	start := clock.Now()
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)

	task, err := backend.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 1, task.Attempt)
	assert.Equal(t, start.Add(2*time.Second), task.NextRunAt)

	// Not runnable until the backoff has elapsed.
	processed, err := m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	assert.False(t, processed)

	clock.Advance(2 * time.Second)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)

	task, err = backend.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, task.Attempt)
	assert.Equal(t, clock.Now().Add(4*time.Second), task.NextRunAt)
}

func TestManager_HandlerPanicCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newClock(), QueueConfig{MaxAttempts: 1})
	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		panic("nil map")
	}), nil))

	id, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)

	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, report.Status)
	assert.Contains(t, report.Error, "handler panicked: nil map")
}

func TestManager_HandlerTimeoutCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newClock(), QueueConfig{MaxAttempts: 2, Timeout: 20 * time.Millisecond})
	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil))

	id, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)

	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, report.Status)
	assert.Equal(t, 1, report.Attempt)
	assert.Contains(t, report.Error, "deadline exceeded")
}

func TestManager_ClaimOrdering(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m, _ := newTestManager(t, clock, QueueConfig{})

	var order []string
	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		var p struct{ Name string }
		_ = json.Unmarshal(task.Payload, &p)
		order = append(order, p.Name)
		return nil, nil
	}), nil))

	_, err := m.Enqueue(ctx, "first", map[string]string{"name": "low-early"}, Options{})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.Enqueue(ctx, "first", map[string]string{"name": "high"}, Options{Priority: 5})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.Enqueue(ctx, "first", map[string]string{"name": "low-late"}, Options{})
	require.NoError(t, err)
	_, err = m.Enqueue(ctx, "first", map[string]string{"name": "delayed"}, Options{Priority: 9, Delay: time.Hour})
	require.NoError(t, err)

	for {
		processed, err := m.ProcessNext(ctx, "first")
		require.NoError(t, err)
		if !processed {
			break
		}
	}
	assert.Equal(t, []string{"high", "low-early", "low-late"}, order)
}

func TestManager_LeasePreventsDoubleClaim(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	backend := NewMemoryBackend(clock.Now)
	task := &Task{ID: "t1", Type: "first", Status: StatusPending, CreatedAt: clock.Now(), NextRunAt: clock.Now(), MaxAttempts: 3}
	require.NoError(t, backend.Enqueue(ctx, task))

	claimed, err := backend.Claim(ctx, "first", clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, StatusActive, claimed.Status)

	again, err := backend.Claim(ctx, "first", clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, again)

	clock.Advance(2 * time.Minute)
	reclaimed, err := backend.Claim(ctx, "first", clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, "t1", reclaimed.ID)
}

func TestManager_Cancel(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newClock(), QueueConfig{})
	require.NoError(t, m.Register("first", okHandler(), nil))

	pending, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)
	require.NoError(t, m.Cancel(ctx, pending))
	_, err = m.Status(ctx, pending)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	done, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Cancel(ctx, done), ErrNotCancellable)

	assert.ErrorIs(t, m.Cancel(ctx, "missing"), ErrTaskNotFound)
}

func TestManager_PurgeCompleted(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m, backend := newTestManager(t, clock, QueueConfig{Retention: time.Hour})
	require.NoError(t, m.Register("first", okHandler(), nil))

	_, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	_, err = m.Enqueue(ctx, "first", nil, Options{Delay: 10 * time.Hour})
	require.NoError(t, err)

	n, err := m.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(2 * time.Hour)
	n, err = m.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, backend.Len())
}

func TestReportProgress_Clamps(t *testing.T) {
	var got []int
	ctx := WithProgress(context.Background(), func(p int) { got = append(got, p) })

	ReportProgress(ctx, -5)
	ReportProgress(ctx, 40)
	ReportProgress(ctx, 250)
	ReportProgress(context.Background(), 10)

	assert.Equal(t, []int{0, 40, 100}, got)
}

// rejectingBackend fails every Enqueue of one task type.
type rejectingBackend struct {
	*MemoryBackend
	reject string
}

func (b *rejectingBackend) Enqueue(ctx context.Context, t *Task) error {
	if t.Type == b.reject {
		return errors.New("connection reset")
	}
	return b.MemoryBackend.Enqueue(ctx, t)
}

func TestManager_ContinuationEnqueueFailureRetriesParent(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	backend := &rejectingBackend{MemoryBackend: NewMemoryBackend(clock.Now), reject: "second"}
	m, err := NewManager(Config{
		Queues: map[string]QueueConfig{"first": {MaxAttempts: 2, BackoffBase: time.Second}},
		Graph:  testGraph(),
		Now:    clock.Now,
	}, backend, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Register("first", HandlerFunc(func(ctx context.Context, task *Task) ([]Continuation, error) {
		return []Continuation{{Type: "second"}}, nil
	}), nil))
	require.NoError(t, m.Register("second", okHandler(), nil))

	id, err := m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)

	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	report, err := m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, report.Status)
	assert.Nil(t, report.CompletedAt)
	assert.Contains(t, report.Error, "continuation second")

	clock.Advance(time.Minute)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	report, err = m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, report.Status)
	assert.Contains(t, report.Error, "connection reset")

	// Once the store accepts the continuation the parent can complete.
	backend.reject = ""
	id, err = m.Enqueue(ctx, "first", nil, Options{})
	require.NoError(t, err)
	_, err = m.ProcessNext(ctx, "first")
	require.NoError(t, err)
	report, err = m.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 3, backend.Len())
}
