// Package notify publishes pipeline events to downstream consumers.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types
const (
	EventProfileProcessed  = "profile.processed"
	EventMatchesReady      = "matches.ready"
	EventAnalyticsSnapshot = "analytics.snapshot"
)

// Event is a pipeline notification.
type Event struct {
	Type       string         `json:"type"`
	SubjectID  string         `json:"subjectId"`
	UserID     string         `json:"userId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Notifier publishes events.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogNotifier writes events to the log. It is used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, e Event) error {
	n.logger.Info("notification",
		zap.String("event", e.Type),
		zap.String("subject_id", e.SubjectID),
		zap.String("user_id", e.UserID),
		zap.Any("data", e.Data),
		zap.Time("occurred_at", e.OccurredAt),
	)
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
