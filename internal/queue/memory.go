package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps tasks in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewMemoryBackend creates an in-process backend. A nil clock uses time.Now.
func NewMemoryBackend(now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{
		tasks: make(map[string]*Task),
		now:   now,
	}
}

func (b *MemoryBackend) Enqueue(ctx context.Context, t *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[t.ID] = t.Clone()
	return nil
}

func (b *MemoryBackend) Claim(ctx context.Context, taskType string, leaseUntil time.Time) (*Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var next *Task
	for _, t := range b.tasks {
		if t.Type != taskType || !runnable(t, now) {
			continue
		}
		if next == nil || t.claimsBefore(next) {
			next = t
		}
	}
	if next == nil {
		return nil, nil
	}

	started := now
	lease := leaseUntil
	next.Status = StatusActive
	next.StartedAt = &started
	next.LeaseUntil = &lease
	return next.Clone(), nil
}

// runnable reports whether t can be claimed at now.
func runnable(t *Task, now time.Time) bool {
	switch t.Status {
	case StatusPending:
		return !t.NextRunAt.After(now)
	case StatusActive:
		return t.LeaseUntil != nil && t.LeaseUntil.Before(now)
	default:
		return false
	}
}

func (b *MemoryBackend) Save(ctx context.Context, t *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[t.ID]; !ok {
		return ErrTaskNotFound
	}
	b.tasks[t.ID] = t.Clone()
	return nil
}

func (b *MemoryBackend) SetProgress(ctx context.Context, id string, progress int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.Progress = progress
	return nil
}

func (b *MemoryBackend) Get(ctx context.Context, id string) (*Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (b *MemoryBackend) Cancel(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status != StatusPending {
		return ErrNotCancellable
	}
	delete(b.tasks, id)
	return nil
}

func (b *MemoryBackend) Dead(ctx context.Context, taskType string) ([]*Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var dead []*Task
	for _, t := range b.tasks {
		if t.Type == taskType && t.Status == StatusDead {
			dead = append(dead, t.Clone())
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		return dead[i].CreatedAt.Before(dead[j].CreatedAt)
	})
	return dead, nil
}

func (b *MemoryBackend) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	purged := 0
	for id, t := range b.tasks {
		if t.Status == StatusCompleted && t.CompletedAt != nil && t.CompletedAt.Before(before) {
			delete(b.tasks, id)
			purged++
		}
	}
	return purged, nil
}

func (b *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored tasks.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tasks)
}
