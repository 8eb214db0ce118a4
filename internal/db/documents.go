package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Document is an uploaded source document awaiting processing.
type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	MediaType   string    `json:"media_type"`
	Content     []byte    `json:"-"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveDocument stores a document, replacing any previous content for its id.
func (db *DB) SaveDocument(ctx context.Context, doc *Document) error {
	if doc.ContentHash == "" {
		doc.ContentHash = HashContent(doc.Content)
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, user_id, media_type, content, content_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     user_id = $2, media_type = $3, content = $4, content_hash = $5
		 RETURNING created_at`,
		doc.ID, doc.UserID, doc.MediaType, doc.Content, doc.ContentHash,
	).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (db *DB) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, media_type, content, content_hash, created_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.UserID, &doc.MediaType, &doc.Content, &doc.ContentHash, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}
