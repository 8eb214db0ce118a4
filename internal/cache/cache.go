// Package cache stores computed match recommendations with a time-to-live.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jonathan/resume-matcher/internal/types"
)

// Cache is a key/value store with per-entry expiry. Expired or missing entries read as
// absent. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is the cached envelope for a match computation.
type Entry struct {
	Recommendations []types.MatchResult `json:"recommendations"`
	TotalConsidered int                 `json:"totalConsidered"`
	GeneratedAt     time.Time           `json:"generatedAt"`
	ExpiresAt       time.Time           `json:"expiresAt"`
}

// MatchKey builds the cache key for one version of a profile matched against a
// posting set. Filters are encoded in sorted key order, so equal filters always
// share a key and different filters never do.
func MatchKey(profileID, profileVersion, postingSetID string, filters url.Values) string {
	canonical := filters.Encode()
	if canonical == "" {
		canonical = "-"
	}
	return fmt.Sprintf("matches:%s@%s:%s:%s", profileID, profileVersion, postingSetID, canonical)
}

// GetEntry reads and decodes an Entry. Undecodable values read as absent.
func GetEntry(ctx context.Context, c Cache, key string) (*Entry, bool) {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// PutEntry encodes and stores an Entry until entry.ExpiresAt.
func PutEntry(ctx context.Context, c Cache, key string, entry *Entry) error {
	ttl := entry.ExpiresAt.Sub(entry.GeneratedAt)
	if ttl <= 0 {
		return fmt.Errorf("entry for %s expires before it is generated", key)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.Put(ctx, key, raw, ttl)
}

// Nop never stores anything.
type Nop struct{}

// Get implements Cache.
func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }

// Put implements Cache.
func (Nop) Put(context.Context, string, []byte, time.Duration) error { return nil }
