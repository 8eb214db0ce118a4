// Package queue implements the task queue manager: typed task queues with
// per-type worker pools, bounded retries with exponential backoff, dead
// letters, and a declared graph of continuation edges between task types.
package queue

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task status constants
const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDead      Status = "dead"
)

// Task is a unit of work persisted by a Backend.
type Task struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts"`
	Priority    int             `json:"priority"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	NextRunAt   time.Time       `json:"nextRunAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	LeaseUntil  *time.Time      `json:"leaseUntil,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Payload != nil {
		c.Payload = append(json.RawMessage(nil), t.Payload...)
	}
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.LeaseUntil = cloneTime(t.LeaseUntil)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// claimsBefore reports whether t should be claimed ahead of other:
// higher priority first, then earlier NextRunAt, then earlier CreatedAt.
func (t *Task) claimsBefore(other *Task) bool {
	if t.Priority != other.Priority {
		return t.Priority > other.Priority
	}
	if !t.NextRunAt.Equal(other.NextRunAt) {
		return t.NextRunAt.Before(other.NextRunAt)
	}
	if !t.CreatedAt.Equal(other.CreatedAt) {
		return t.CreatedAt.Before(other.CreatedAt)
	}
	return t.ID < other.ID
}

// Options are per-enqueue overrides.
type Options struct {
	Priority    int           `json:"priority,omitempty" mapstructure:"priority"`
	MaxAttempts int           `json:"maxAttempts,omitempty" mapstructure:"max_attempts"`
	Delay       time.Duration `json:"delay,omitempty" mapstructure:"delay"`
}

// StatusReport is the externally visible view of a task.
type StatusReport struct {
	TaskID      string     `json:"taskId"`
	Type        string     `json:"type"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Attempt     int        `json:"attempt"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Report builds the status view of t.
func (t *Task) Report() StatusReport {
	return StatusReport{
		TaskID:      t.ID,
		Type:        t.Type,
		Status:      t.Status,
		Progress:    t.Progress,
		Attempt:     t.Attempt,
		Error:       t.LastError,
		CompletedAt: cloneTime(t.CompletedAt),
	}
}

// QueueConfig configures one task type's worker pool and retry policy.
type QueueConfig struct {
	Workers      int           `mapstructure:"workers"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retention    time.Duration `mapstructure:"retention"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DefaultQueueConfig returns the settings used for unconfigured task types.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:      2,
		MaxAttempts:  3,
		BackoffBase:  time.Second,
		BackoffMax:   time.Minute,
		Timeout:      30 * time.Second,
		Retention:    24 * time.Hour,
		PollInterval: 500 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultQueueConfig.
func (c QueueConfig) withDefaults() QueueConfig {
	d := DefaultQueueConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
