package pipeline

import (
	"context"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/types"
)

// Store is the persistence the pipeline reads and writes. It is implemented by
// db.DB and db.MemoryStore.
type Store interface {
	GetDocument(ctx context.Context, id string) (*db.Document, error)
	GetProfile(ctx context.Context, id string) (*types.Profile, error)
	SaveProfile(ctx context.Context, p *types.Profile) error
	GetPosting(ctx context.Context, id string) (*types.Posting, error)
	ListPostings(ctx context.Context, filter types.PostingFilter) ([]types.Posting, error)
	CatalogVersion(ctx context.Context) (string, error)
}

var (
	_ Store = (*db.DB)(nil)
	_ Store = (*db.MemoryStore)(nil)
)
