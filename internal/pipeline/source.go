package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/fetch"
	"github.com/jonathan/resume-matcher/internal/ingestion"
)

// Source reference schemes
const (
	SchemeStore = "store:"
	SchemeFile  = "file://"
)

// Source is raw document content and its media type.
type Source struct {
	Content   []byte
	MediaType string
	UserID    string
}

// SourceError reports a sourceRef that cannot be resolved.
type SourceError struct {
	Ref     string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot resolve source %s: %s: %v", e.Ref, e.Message, e.Cause)
	}
	return fmt.Sprintf("cannot resolve source %s: %s", e.Ref, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// Resolver loads document content referenced by a sourceRef.
type Resolver struct {
	Store      Store
	Fetch      *fetch.Options
	AllowFiles bool
}

// Resolve loads the content behind ref: "store:<id>", "http(s)://..." or,
// when AllowFiles is set, "file://<path>".
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Source, error) {
	switch {
	case strings.HasPrefix(ref, SchemeStore):
		return r.fromStore(ctx, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.fromURL(ctx, ref)
	case strings.HasPrefix(ref, SchemeFile):
		return r.fromFile(ref)
	default:
		return nil, &SourceError{Ref: ref, Message: "unsupported scheme"}
	}
}

func (r *Resolver) fromStore(ctx context.Context, ref string) (*Source, error) {
	id := strings.TrimPrefix(ref, SchemeStore)
	if id == "" {
		return nil, &SourceError{Ref: ref, Message: "missing document id"}
	}
	if r.Store == nil {
		return nil, &SourceError{Ref: ref, Message: "no document store configured"}
	}
	doc, err := r.Store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &SourceError{Ref: ref, Message: "document not found", Cause: err}
		}
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return &Source{Content: doc.Content, MediaType: doc.MediaType, UserID: doc.UserID}, nil
}

func (r *Resolver) fromURL(ctx context.Context, ref string) (*Source, error) {
	result, err := fetch.URL(ctx, ref, r.Fetch)
	if err != nil {
		return nil, err
	}
	return &Source{Content: result.Body, MediaType: result.ContentType}, nil
}

func (r *Resolver) fromFile(ref string) (*Source, error) {
	if !r.AllowFiles {
		return nil, &SourceError{Ref: ref, Message: "file sources are disabled"}
	}
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" {
		return nil, &SourceError{Ref: ref, Message: "invalid file URL", Cause: err}
	}
	content, err := os.ReadFile(u.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &SourceError{Ref: ref, Message: "file not found", Cause: err}
		}
		return nil, fmt.Errorf("failed to read %s: %w", u.Path, err)
	}
	return &Source{Content: content, MediaType: ingestion.MediaTypeForPath(u.Path)}, nil
}
