package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/ingestion"
	"github.com/jonathan/resume-matcher/internal/notify"
	"github.com/jonathan/resume-matcher/internal/parsing"
	"github.com/jonathan/resume-matcher/internal/profile"
	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/schemas"
	"github.com/jonathan/resume-matcher/internal/types"
)

// DefaultNotifyTop is how many posting ids a matches.ready event carries.
const DefaultNotifyTop = 5

// Deps are the collaborators the task handlers use.
type Deps struct {
	Store    Store
	Resolver *Resolver
	Matches  *MatchService
	Notifier notify.Notifier
	// Skills overrides the dictionary skill extractor.
	Skills parsing.SkillExtractor
	Now    func() time.Time
	Logger *zap.Logger
}

// Handlers implements the pipeline task handlers.
type Handlers struct {
	store    Store
	resolver *Resolver
	matches  *MatchService
	notifier notify.Notifier
	skills   parsing.SkillExtractor
	now      func() time.Time
	logger   *zap.Logger
}

// NewHandlers creates the handlers. Missing notifier and resolver fall back to
// a log notifier and a store-backed resolver.
func NewHandlers(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier(deps.Logger)
	}
	if deps.Resolver == nil {
		deps.Resolver = &Resolver{Store: deps.Store}
	}
	if deps.Matches == nil {
		deps.Matches = NewMatchService(deps.Store, nil, MatchOptions{Now: deps.Now, Logger: deps.Logger})
	}
	return &Handlers{
		store:    deps.Store,
		resolver: deps.Resolver,
		matches:  deps.Matches,
		notifier: deps.Notifier,
		skills:   deps.Skills,
		now:      deps.Now,
		logger:   deps.Logger,
	}
}

// Register binds every pipeline handler to m with its payload schema.
func (h *Handlers) Register(m *queue.Manager, reg *schemas.Registry) error {
	handlers := map[string]queue.HandlerFunc{
		TypeDocumentProcessing: h.ProcessDocument,
		TypeMatchGeneration:    h.GenerateMatches,
		TypeNotification:       h.Notify,
		TypeAnalytics:          h.Analyze,
	}
	for taskType, fn := range handlers {
		if err := m.Register(taskType, h.traced(fn), reg.Validator(taskType)); err != nil {
			return fmt.Errorf("failed to register %s: %w", taskType, err)
		}
	}
	return nil
}

// traced logs the start and outcome of every handler invocation.
func (h *Handlers) traced(fn queue.HandlerFunc) queue.HandlerFunc {
	return func(ctx context.Context, t *queue.Task) ([]queue.Continuation, error) {
		fields := []zap.Field{
			zap.String("task_id", t.ID),
			zap.String("type", t.Type),
			zap.String("subject_id", subjectID(t.Payload)),
			zap.Int("attempt", t.Attempt+1),
		}
		h.logger.Debug("handling task", fields...)
		conts, err := fn(ctx, t)
		if err != nil {
			h.logger.Debug("handler failed", append(fields, zap.Error(err))...)
		}
		return conts, err
	}
}

// ProcessDocument turns a source document into a scored, persisted profile
// and continues with match generation.
func (h *Handlers) ProcessDocument(ctx context.Context, t *queue.Task) ([]queue.Continuation, error) {
	var payload DocumentPayload
	if err := decodePayload(t.Payload, &payload); err != nil {
		return nil, err
	}

	src, err := h.resolver.Resolve(ctx, payload.SourceRef)
	if err != nil {
		return nil, err
	}
	queue.ReportProgress(ctx, 20)

	mediaType := payload.MediaType
	if mediaType == "" {
		mediaType = src.MediaType
	}
	text, err := ingestion.ExtractText(src.Content, mediaType)
	if err != nil {
		return nil, err
	}
	queue.ReportProgress(ctx, 40)

	userID := payload.UserID
	if userID == "" {
		userID = src.UserID
	}
	p := profile.Build(ctx, text, profile.Options{
		ID:     payload.SubjectID,
		UserID: userID,
		Skills: h.skills,
		Now:    h.now,
		Logger: h.logger,
	})
	queue.ReportProgress(ctx, 70)

	if err := h.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	queue.ReportProgress(ctx, 90)

	h.logger.Info("profile processed",
		zap.String("task_id", t.ID),
		zap.String("profile_id", p.ID),
		zap.Int("skills", len(p.Skills)),
		zap.Int("overall_quality", p.Quality.Overall),
	)

	return []queue.Continuation{{
		Type:    TypeMatchGeneration,
		Payload: MatchPayload{SubjectID: p.ID, SourceRef: payload.SourceRef},
	}}, nil
}

// GenerateMatches ranks the catalog for a profile, refreshes the cached
// result and continues with a matches.ready notification.
func (h *Handlers) GenerateMatches(ctx context.Context, t *queue.Task) ([]queue.Continuation, error) {
	var payload MatchPayload
	if err := decodePayload(t.Payload, &payload); err != nil {
		return nil, err
	}

	entry, err := h.matches.Refresh(ctx, payload.SubjectID, payload.Filters)
	if err != nil {
		return nil, err
	}
	queue.ReportProgress(ctx, 80)

	top := payload.TopN
	if top <= 0 {
		top = DefaultNotifyTop
	}
	var ids []string
	for i, r := range entry.Recommendations {
		if i == top {
			break
		}
		ids = append(ids, r.PostingID)
	}

	h.logger.Info("matches generated",
		zap.String("task_id", t.ID),
		zap.String("profile_id", payload.SubjectID),
		zap.Int("considered", entry.TotalConsidered),
		zap.Int("kept", len(entry.Recommendations)),
	)

	return []queue.Continuation{{
		Type: TypeNotification,
		Payload: NotificationPayload{
			SubjectID: payload.SubjectID,
			SourceRef: payload.SourceRef,
			Event:     notify.EventMatchesReady,
			Data: map[string]any{
				"count":           len(entry.Recommendations),
				"totalConsidered": entry.TotalConsidered,
				"top":             ids,
			},
		},
	}}, nil
}

// Notify publishes the payload's event.
func (h *Handlers) Notify(ctx context.Context, t *queue.Task) ([]queue.Continuation, error) {
	var payload NotificationPayload
	if err := decodePayload(t.Payload, &payload); err != nil {
		return nil, err
	}
	err := h.notifier.Publish(ctx, notify.Event{
		Type:       payload.Event,
		SubjectID:  payload.SubjectID,
		UserID:     payload.UserID,
		Data:       payload.Data,
		OccurredAt: h.now(),
	})
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// Analyze publishes a snapshot of the posting catalog.
func (h *Handlers) Analyze(ctx context.Context, t *queue.Task) ([]queue.Continuation, error) {
	var payload AnalyticsPayload
	if err := decodePayload(t.Payload, &payload); err != nil {
		return nil, err
	}

	snapshot, err := h.catalogSnapshot(ctx, payload.Since)
	if err != nil {
		return nil, err
	}
	h.logger.Info("analytics snapshot",
		zap.String("task_id", t.ID),
		zap.String("scope", payload.SubjectID),
		zap.Any("snapshot", snapshot),
	)

	err = h.notifier.Publish(ctx, notify.Event{
		Type:       notify.EventAnalyticsSnapshot,
		SubjectID:  payload.SubjectID,
		Data:       snapshot,
		OccurredAt: h.now(),
	})
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *Handlers) catalogSnapshot(ctx context.Context, since time.Time) (map[string]any, error) {
	postings, err := h.store.ListPostings(ctx, types.PostingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load postings: %w", err)
	}
	byType := map[string]int{}
	bySeniority := map[string]int{}
	remote, recent := 0, 0
	for _, p := range postings {
		byType[orUnknown(p.EmploymentType)]++
		bySeniority[orUnknown(p.SeniorityLevel)]++
		if p.Location.IsRemote {
			remote++
		}
		if !since.IsZero() && p.CreatedAt.After(since) {
			recent++
		}
	}
	snapshot := map[string]any{
		"postings":        len(postings),
		"remote":          remote,
		"employmentTypes": byType,
		"seniority":       bySeniority,
	}
	if !since.IsZero() {
		snapshot["since"] = since.Format(time.RFC3339)
		snapshot["recent"] = recent
	}
	return snapshot, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
