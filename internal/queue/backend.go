package queue

import (
	"context"
	"time"
)

// Backend persists tasks and arbitrates claims between workers.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Enqueue stores a new pending task.
	Enqueue(ctx context.Context, t *Task) error
	// Claim returns the next runnable task of the given type, marked active
	// with a lease until leaseUntil, or nil when nothing is runnable.
	// Active tasks whose lease has expired are runnable again.
	Claim(ctx context.Context, taskType string, leaseUntil time.Time) (*Task, error)
	// Save persists a state transition of a claimed task
	// (completed, rescheduled pending, or dead).
	Save(ctx context.Context, t *Task) error
	// SetProgress updates the progress of a task.
	SetProgress(ctx context.Context, id string, progress int) error
	// Get returns a task by id or ErrTaskNotFound.
	Get(ctx context.Context, id string) (*Task, error)
	// Cancel removes a pending task; ErrNotCancellable when it is not pending.
	Cancel(ctx context.Context, id string) error
	// Dead lists dead tasks of a type.
	Dead(ctx context.Context, taskType string) ([]*Task, error)
	// PurgeCompleted deletes completed tasks finished before the cutoff.
	PurgeCompleted(ctx context.Context, before time.Time) (int, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
