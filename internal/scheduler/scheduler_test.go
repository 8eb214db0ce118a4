package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/resume-matcher/internal/dispatch"
	"github.com/jonathan/resume-matcher/internal/queue"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

type fakePurger struct {
	mu     sync.Mutex
	before []time.Time
	err    error
}

func (p *fakePurger) PurgeCompleted(_ context.Context, before time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.before = append(p.before, before)
	return 3, p.err
}

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSweeper) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 1
}

func (s *fakeSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeEnqueuer struct {
	taskType string
	payload  map[string]any
	err      error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, taskType string, payload any, _ queue.Options) (dispatch.Handle, error) {
	e.taskType = taskType
	e.payload = payload.(map[string]any)
	if e.err != nil {
		return dispatch.Handle{}, e.err
	}
	return dispatch.Handle{TaskID: "t1", Mode: dispatch.ModeQueued}, nil
}

func TestPurge_UsesRetention(t *testing.T) {
	purger := &fakePurger{}
	s := New(Config{Retention: 2 * time.Hour}, Deps{Purger: purger, Now: fixedNow}, nil)

	s.Purge(context.Background())
	require.Len(t, purger.before, 1)
	assert.Equal(t, fixedNow().Add(-2*time.Hour), purger.before[0])
}

func TestPurge_DefaultRetentionAndErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	purger := &fakePurger{err: errors.New("redis down")}
	s := New(Config{}, Deps{Purger: purger, Now: fixedNow}, zap.New(core))

	s.Purge(context.Background())
	assert.Equal(t, fixedNow().Add(-DefaultRetention), purger.before[0])
	assert.Equal(t, 1, logs.FilterMessage("purge failed").Len())
}

func TestAnalytics(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := New(Config{AnalyticsSpec: "@every 6h"}, Deps{Enqueuer: enq, Now: fixedNow}, nil)

	s.Analytics(context.Background())
	assert.Equal(t, "analytics", enq.taskType)
	assert.Equal(t, "all", enq.payload["subjectId"])
	assert.Equal(t, "2024-05-01T06:00:00Z", enq.payload["since"])
}

func TestAnalytics_EnqueueFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	enq := &fakeEnqueuer{err: errors.New("invalid")}
	s := New(Config{}, Deps{Enqueuer: enq, Now: fixedNow}, zap.New(core))

	s.Analytics(context.Background())
	_, hasSince := enq.payload["since"]
	assert.False(t, hasSince)
	assert.Equal(t, 1, logs.FilterMessage("failed to enqueue analytics").Len())
}

func TestStart_RegistersEnabledJobs(t *testing.T) {
	s := New(Config{PurgeSpec: "@every 1h", SweepSpec: "@every 1m", AnalyticsSpec: "@every 1h"},
		Deps{Purger: &fakePurger{}, Sweeper: &fakeSweeper{}}, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Equal(t, []string{"purge", "sweep"}, s.Jobs())
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New(Config{PurgeSpec: "every now and then"}, Deps{Purger: &fakePurger{}}, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge")
}

func TestStart_RunsJobs(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := New(Config{SweepSpec: "@every 1s"}, Deps{Sweeper: sweeper}, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return sweeper.count() > 0 }, 3*time.Second, 50*time.Millisecond)
}
