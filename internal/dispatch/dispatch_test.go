package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/types"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type failingBackend struct {
	*queue.MemoryBackend
}

func (b failingBackend) Enqueue(ctx context.Context, t *queue.Task) error {
	return errors.New("connection refused")
}

func testGraph() *queue.Graph {
	return queue.NewGraph(
		queue.TypeDefinition{Name: "parse", Continuations: []string{"match", "notify"}},
		queue.TypeDefinition{Name: "match", Continuations: []string{"notify"}},
		queue.TypeDefinition{Name: "notify"},
	)
}

func newManager(t *testing.T, backend queue.Backend, qc queue.QueueConfig, rec *recorder) *queue.Manager {
	t.Helper()
	m, err := queue.NewManager(queue.Config{
		Queues: map[string]queue.QueueConfig{"parse": qc, "match": qc, "notify": qc},
		Graph:  testGraph(),
	}, backend, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Register("parse", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		rec.add("parse")
		queue.ReportProgress(ctx, 30)
		return []queue.Continuation{{Type: "match"}, {Type: "notify"}}, nil
	}), func(payload json.RawMessage) error {
		if !strings.Contains(string(payload), "subjectId") {
			return errors.New("subjectId is required")
		}
		return nil
	}))
	require.NoError(t, m.Register("match", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		rec.add("match")
		return []queue.Continuation{{Type: "notify"}}, nil
	}), nil))
	require.NoError(t, m.Register("notify", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		rec.add("notify")
		return nil, nil
	}), nil))
	return m
}

var payload = map[string]string{"subjectId": "doc-1", "sourceRef": "store:doc-1"}

func TestDispatcher_InlineRunsContinuationsInOrder(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	d := New(types.Capabilities{}, newManager(t, nil, queue.QueueConfig{}, rec), zap.NewNop())
	assert.Equal(t, ModeInline, d.Mode())

	h, err := d.Enqueue(ctx, "parse", payload, queue.Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeInline, h.Mode)
	assert.True(t, strings.HasPrefix(h.TaskID, InlinePrefix))

	assert.Equal(t, []string{"parse", "match", "notify", "notify"}, rec.list())

	report, err := d.Status(ctx, h.TaskID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, report.Status)
	assert.Equal(t, 100, report.Progress)
	assert.NotNil(t, report.CompletedAt)
}

func TestDispatcher_InvalidInputIsSynchronous(t *testing.T) {
	ctx := context.Background()
	for _, caps := range []types.Capabilities{{}, {QueueAvailable: true}} {
		rec := &recorder{}
		d := New(caps, newManager(t, queue.NewMemoryBackend(nil), queue.QueueConfig{}, rec), zap.NewNop())

		_, err := d.Enqueue(ctx, "parse", map[string]string{}, queue.Options{})
		assert.True(t, queue.IsInvalidInput(err), "mode %s", d.Mode())
		_, err = d.Enqueue(ctx, "unknown", payload, queue.Options{})
		assert.True(t, queue.IsInvalidInput(err), "mode %s", d.Mode())
		assert.Empty(t, rec.list())
	}
}

func TestDispatcher_BackendFailureDegradesToInline(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	backend := failingBackend{queue.NewMemoryBackend(nil)}
	d := New(types.Capabilities{QueueAvailable: true}, newManager(t, backend, queue.QueueConfig{}, rec), zap.NewNop())
	assert.Equal(t, ModeQueued, d.Mode())

	h, err := d.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeInline, h.Mode)
	assert.Equal(t, []string{"notify"}, rec.list())
}

func TestDispatcher_InlineRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	m, err := queue.NewManager(queue.Config{
		Queues: map[string]queue.QueueConfig{"notify": {MaxAttempts: 3, BackoffBase: time.Millisecond, BackoffMax: 2 * time.Millisecond}},
		Graph:  testGraph(),
	}, nil, zap.NewNop())
	require.NoError(t, err)

	calls := 0
	require.NoError(t, m.Register("notify", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("flaky")
		}
		return nil, nil
	}), nil))

	d := New(types.Capabilities{}, m, zap.NewNop())
	h, err := d.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)

	report, err := d.Status(ctx, h.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, queue.StatusCompleted, report.Status)
	assert.Equal(t, 2, report.Attempt)
	assert.Empty(t, report.Error)
}

func TestDispatcher_InlineDeadAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	m, err := queue.NewManager(queue.Config{
		Queues: map[string]queue.QueueConfig{"notify": {MaxAttempts: 2, BackoffBase: time.Millisecond}},
		Graph:  testGraph(),
	}, nil, zap.NewNop())
	require.NoError(t, err)

	calls := 0
	require.NoError(t, m.Register("notify", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		calls++
		return nil, errors.New("smtp down")
	}), nil))

	d := New(types.Capabilities{}, m, zap.NewNop())
	h, err := d.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)

	report, err := d.Status(ctx, h.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, queue.StatusDead, report.Status)
	assert.Equal(t, "smtp down", report.Error)
}

func TestDispatcher_PurgeDeadInline(t *testing.T) {
	ctx := context.Background()
	m, err := queue.NewManager(queue.Config{
		Queues: map[string]queue.QueueConfig{"notify": {MaxAttempts: 1}},
		Graph:  testGraph(),
	}, nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Register("notify", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		return nil, errors.New("smtp down")
	}), nil))

	d := New(types.Capabilities{}, m, zap.NewNop())
	h, err := d.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)

	n, err := d.PurgeCompleted(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	report, err := d.Status(ctx, h.TaskID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusDead, report.Status)
	assert.Equal(t, "smtp down", report.Error)

	n, err = d.PurgeCompleted(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = d.Status(ctx, h.TaskID)
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)
}

func TestDispatcher_InlineRetryHonorsContext(t *testing.T) {
	m, err := queue.NewManager(queue.Config{
		Queues: map[string]queue.QueueConfig{"notify": {MaxAttempts: 5, BackoffBase: time.Hour}},
		Graph:  testGraph(),
	}, nil, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Register("notify", queue.HandlerFunc(func(ctx context.Context, task *queue.Task) ([]queue.Continuation, error) {
		cancel()
		return nil, errors.New("fail")
	}), nil))

	d := New(types.Capabilities{}, m, zap.NewNop())
	h, err := d.Enqueue(ctx, "notify", payload, queue.Options{})
	require.ErrorIs(t, err, context.Canceled)

	report, err := d.Status(context.Background(), h.TaskID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusDead, report.Status)
}

// The same handlers produce the same side effects and the same final
// status whether they run through the queue or inline.
func TestDispatcher_FallbackEquivalence(t *testing.T) {
	ctx := context.Background()

	queuedRec := &recorder{}
	backend := queue.NewMemoryBackend(nil)
	qm := newManager(t, backend, queue.QueueConfig{}, queuedRec)
	queued := New(types.Capabilities{QueueAvailable: true}, qm, zap.NewNop())

	qh, err := queued.Enqueue(ctx, "parse", payload, queue.Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeQueued, qh.Mode)
	for _, taskType := range []string{"parse", "match", "notify"} {
		for {
			processed, err := qm.ProcessNext(ctx, taskType)
			require.NoError(t, err)
			if !processed {
				break
			}
		}
	}

	inlineRec := &recorder{}
	inline := New(types.Capabilities{}, newManager(t, nil, queue.QueueConfig{}, inlineRec), zap.NewNop())
	ih, err := inline.Enqueue(ctx, "parse", payload, queue.Options{})
	require.NoError(t, err)

	assert.Equal(t, queuedRec.list(), inlineRec.list())

	qr, err := queued.Status(ctx, qh.TaskID)
	require.NoError(t, err)
	ir, err := inline.Status(ctx, ih.TaskID)
	require.NoError(t, err)
	assert.Equal(t, qr.Status, ir.Status)
	assert.Equal(t, qr.Progress, ir.Progress)
	assert.Equal(t, qr.Error, ir.Error)
	assert.Equal(t, qr.Attempt, ir.Attempt)
}

func TestDispatcher_Cancel(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}

	inline := New(types.Capabilities{}, newManager(t, nil, queue.QueueConfig{}, rec), zap.NewNop())
	h, err := inline.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, inline.Cancel(ctx, h.TaskID), queue.ErrNotCancellable)
	assert.ErrorIs(t, inline.Cancel(ctx, InlinePrefix+"missing"), queue.ErrTaskNotFound)

	queued := New(types.Capabilities{QueueAvailable: true}, newManager(t, queue.NewMemoryBackend(nil), queue.QueueConfig{}, rec), zap.NewNop())
	h, err = queued.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)
	require.NoError(t, queued.Cancel(ctx, h.TaskID))
	_, err = queued.Status(ctx, h.TaskID)
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)
}

func TestDispatcher_PurgeCompletedInline(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	d := New(types.Capabilities{}, newManager(t, nil, queue.QueueConfig{}, rec), zap.NewNop())

	h, err := d.Enqueue(ctx, "notify", payload, queue.Options{})
	require.NoError(t, err)

	n, err := d.PurgeCompleted(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = d.Status(ctx, h.TaskID)
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)
}
