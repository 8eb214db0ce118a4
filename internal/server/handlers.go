package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/dispatch"
	"github.com/jonathan/resume-matcher/internal/pipeline"
	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/types"
)

// DocumentRequest is the body of POST /documents.
type DocumentRequest struct {
	SubjectID string `json:"subjectId,omitempty" validate:"omitempty,max=128"`
	UserID    string `json:"userId,omitempty" validate:"max=128"`
	MediaType string `json:"mediaType" validate:"required,oneof=text/plain text/markdown text/html"`
	Content   string `json:"content" validate:"required,max=10485760"`
	Priority  int    `json:"priority,omitempty" validate:"gte=-100,lte=100"`
}

// DocumentResponse is returned once a document is stored and queued.
type DocumentResponse struct {
	DocumentID string        `json:"documentId"`
	ProfileID  string        `json:"profileId"`
	TaskID     string        `json:"taskId"`
	Mode       dispatch.Mode `json:"mode"`
}

// TaskRequest is the body of POST /tasks/{type}.
type TaskRequest struct {
	Payload      json.RawMessage `json:"payload" validate:"required"`
	Priority     int             `json:"priority,omitempty" validate:"gte=-100,lte=100"`
	MaxAttempts  int             `json:"maxAttempts,omitempty" validate:"gte=0,lte=25"`
	DelaySeconds int             `json:"delaySeconds,omitempty" validate:"gte=0,lte=86400"`
}

// TaskResponse identifies an accepted task.
type TaskResponse struct {
	TaskID string        `json:"taskId"`
	Mode   dispatch.Mode `json:"mode"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string             `json:"status"`
	Mode         dispatch.Mode      `json:"mode"`
	Capabilities types.Capabilities `json:"capabilities"`
	Checks       map[string]string  `json:"checks,omitempty"`
}

// handleCreateDocument stores an uploaded document and queues its processing.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	doc := &db.Document{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		MediaType: req.MediaType,
		Content:   []byte(req.Content),
	}
	if err := s.documents.SaveDocument(r.Context(), doc); err != nil {
		s.handleError(w, r, err)
		return
	}

	profileID := req.SubjectID
	if profileID == "" {
		profileID = uuid.NewString()
	}
	payload := pipeline.DocumentPayload{
		SubjectID: profileID,
		SourceRef: pipeline.SchemeStore + doc.ID,
		UserID:    req.UserID,
		MediaType: req.MediaType,
	}
	handle, err := s.enqueue(r.Context(), pipeline.TypeDocumentProcessing, payload, queue.Options{Priority: req.Priority})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, DocumentResponse{
		DocumentID: doc.ID,
		ProfileID:  profileID,
		TaskID:     handle.TaskID,
		Mode:       handle.Mode,
	})
}

// handleEnqueueTask submits a task of any declared type.
func (s *Server) handleEnqueueTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	opts := queue.Options{
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
		Delay:       time.Duration(req.DelaySeconds) * time.Second,
	}
	handle, err := s.enqueue(r.Context(), r.PathValue("type"), req.Payload, opts)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, TaskResponse{TaskID: handle.TaskID, Mode: handle.Mode})
}

// enqueue submits through the dispatcher. A task that ran inline and failed
// still has a status record, so only failures without a handle are returned.
func (s *Server) enqueue(ctx context.Context, taskType string, payload any, opts queue.Options) (dispatch.Handle, error) {
	handle, err := s.dispatcher.Enqueue(ctx, taskType, payload, opts)
	if err != nil && handle.TaskID == "" {
		return handle, err
	}
	if err != nil {
		s.logger.Warn("inline task failed", zap.String("task_id", handle.TaskID), zap.Error(err))
	}
	return handle, nil
}

// handleTaskStatus returns the status of a task
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.dispatcher.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleCancelTask cancels a task that has not started.
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatches returns ranked postings for a profile. Filters come from the
// query string, e.g. ?limit=5&remote_only=true&min_salary=90000.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	filters, err := s.parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp, err := s.matches.GetMatches(r.Context(), r.PathValue("id"), filters)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) parseFilters(r *http.Request) (pipeline.Filters, error) {
	query := r.URL.Query()
	raw := make(map[string]any, len(query))
	for key := range query {
		raw[key] = query.Get(key)
	}

	var filters pipeline.Filters
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &filters,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return filters, err
	}
	if err := decoder.Decode(raw); err != nil {
		return filters, &ErrValidation{Field: "(query)", Message: err.Error()}
	}
	if err := s.validate.Struct(filters); err != nil {
		return filters, validationError(err)
	}
	return filters, nil
}

// handleHealth reports the execution mode and dependency reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       "ok",
		Mode:         s.dispatcher.Mode(),
		Capabilities: s.caps,
	}

	if len(s.checks) > 0 {
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name](ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	if resp.Mode == dispatch.ModeInline {
		resp.Status = "degraded"
	}

	s.jsonResponse(w, http.StatusOK, resp)
}
