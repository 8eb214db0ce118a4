package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/resume-matcher/internal/types"
)

// MemoryStore is an in-process store with the same semantics as DB.
// Records are deep-copied on the way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	profiles  map[string][]byte
	postings  map[string]types.Posting
	now       func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		profiles:  make(map[string][]byte),
		postings:  make(map[string]types.Posting),
		now:       time.Now,
	}
}

// Ping implements the store health check.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// SaveDocument stores a document, replacing any previous content for its id.
func (s *MemoryStore) SaveDocument(ctx context.Context, doc *Document) error {
	if doc.ContentHash == "" {
		doc.ContentHash = HashContent(doc.Content)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.documents[doc.ID]; ok {
		doc.CreatedAt = prev.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}
	stored := *doc
	stored.Content = append([]byte(nil), doc.Content...)
	s.documents[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by id.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc.Content = append([]byte(nil), doc.Content...)
	return &doc, nil
}

// SaveProfile upserts the whole profile record.
func (s *MemoryStore) SaveProfile(ctx context.Context, p *types.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = data
	return nil
}

// GetProfile retrieves a profile by id.
func (s *MemoryStore) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	s.mu.RLock()
	data, ok := s.profiles[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	return &p, nil
}

// PublishPosting inserts a posting; republishing an id returns ErrPostingExists.
func (s *MemoryStore) PublishPosting(ctx context.Context, p *types.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.postings[p.ID]; ok {
		return ErrPostingExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.postings[p.ID] = clonePosting(*p)
	return nil
}

// GetPosting retrieves a posting by id.
func (s *MemoryStore) GetPosting(ctx context.Context, id string) (*types.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.postings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clonePosting(p)
	return &c, nil
}

// ListPostings returns postings passing filter, newest first.
func (s *MemoryStore) ListPostings(ctx context.Context, filter types.PostingFilter) ([]types.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Posting
	for _, p := range s.postings {
		if filter.Matches(p) {
			out = append(out, clonePosting(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CatalogVersion identifies the current set of published postings.
func (s *MemoryStore) CatalogVersion(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *time.Time
	for _, p := range s.postings {
		if newest == nil || p.CreatedAt.After(*newest) {
			t := p.CreatedAt
			newest = &t
		}
	}
	return catalogVersion(int64(len(s.postings)), newest), nil
}

func clonePosting(p types.Posting) types.Posting {
	p.Skills = append([]types.SkillRequirement(nil), p.Skills...)
	p.Keywords = append([]string(nil), p.Keywords...)
	if p.Experience.MaxYears != nil {
		v := *p.Experience.MaxYears
		p.Experience.MaxYears = &v
	}
	if p.MinimumDegree != nil {
		v := *p.MinimumDegree
		p.MinimumDegree = &v
	}
	if p.Salary.Min != nil {
		v := *p.Salary.Min
		p.Salary.Min = &v
	}
	if p.Salary.Max != nil {
		v := *p.Salary.Max
		p.Salary.Max = &v
	}
	return p
}
