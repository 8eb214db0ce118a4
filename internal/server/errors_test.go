package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/pipeline"
	"github.com/jonathan/resume-matcher/internal/queue"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ErrValidation{Field: "content", Message: "required"}, http.StatusBadRequest},
		{"invalid input", &queue.InvalidInputError{Type: "x", Reason: "unknown task type"}, http.StatusBadRequest},
		{"task not found", fmt.Errorf("lookup: %w", queue.ErrTaskNotFound), http.StatusNotFound},
		{"profile not found", fmt.Errorf("%w: p1", pipeline.ErrProfileNotFound), http.StatusNotFound},
		{"document not found", db.ErrNotFound, http.StatusNotFound},
		{"not cancellable", queue.ErrNotCancellable, http.StatusConflict},
		{"backend", queue.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	type request struct {
		Limit int `json:"limit" validate:"lte=10"`
	}
	err := newValidator().Struct(request{Limit: 11})
	var verr *ErrValidation
	assert.True(t, errors.As(validationError(err), &verr))
	assert.Equal(t, "limit", verr.Field)
	assert.Equal(t, "failed on lte=10", verr.Message)

	assert.Equal(t, "(body)", validationError(errors.New("x")).(*ErrValidation).Field)
}
