package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/cache"
	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/ranking"
	"github.com/jonathan/resume-matcher/internal/types"
)

// Match service defaults
const (
	DefaultTopN     = 20
	DefaultCacheTTL = time.Hour
	DefaultLimit    = 10
)

// ErrProfileNotFound is returned when matches are requested for an unknown profile.
var ErrProfileNotFound = errors.New("profile not found")

// Filters narrow and limit a match query.
type Filters struct {
	Limit               int `json:"limit,omitempty" mapstructure:"limit" validate:"gte=0,lte=500"`
	types.PostingFilter `mapstructure:",squash"`
}

// Match is one ranked posting in a match response.
type Match struct {
	PostingID  string          `json:"postingId"`
	TotalScore float64         `json:"totalScore"`
	Breakdown  types.Breakdown `json:"breakdown"`
}

// MatchResponse is the result of a match query.
type MatchResponse struct {
	ProfileID       string    `json:"profileId"`
	Matches         []Match   `json:"matches"`
	TotalConsidered int       `json:"totalConsidered"`
	GeneratedAt     time.Time `json:"generatedAt"`
	Cached          bool      `json:"cached"`
}

// MatchOptions configure a MatchService. Zero values select the defaults.
type MatchOptions struct {
	Ranking ranking.Options
	TopN    int
	TTL     time.Duration
	Now     func() time.Time
	Logger  *zap.Logger
}

// MatchService answers match queries from the cache, computing and caching on a miss.
type MatchService struct {
	store   Store
	cache   cache.Cache
	ranking ranking.Options
	topN    int
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewMatchService creates a match service. A nil cache disables caching.
func NewMatchService(store Store, c cache.Cache, opts MatchOptions) *MatchService {
	if c == nil {
		c = cache.Nop{}
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &MatchService{
		store:   store,
		cache:   c,
		ranking: opts.Ranking,
		topN:    opts.TopN,
		ttl:     opts.TTL,
		now:     opts.Now,
		logger:  opts.Logger,
	}
}

// GetMatches returns up to f.Limit ranked matches for a profile. Results come
// from the cache when present and are computed and cached otherwise.
func (s *MatchService) GetMatches(ctx context.Context, profileID string, f Filters) (*MatchResponse, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, s.topN)

	p, err := s.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	key, cacheable := s.key(ctx, p, f.PostingFilter)
	if cacheable {
		if entry, ok := cache.GetEntry(ctx, s.cache, key); ok {
			return response(profileID, entry, limit, true), nil
		}
	}

	entry, err := s.compute(ctx, p, f.PostingFilter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.put(ctx, key, entry)
	}
	return response(profileID, entry, limit, false), nil
}

// Refresh recomputes a profile's matches and overwrites the cached entry.
func (s *MatchService) Refresh(ctx context.Context, profileID string, filter types.PostingFilter) (*cache.Entry, error) {
	p, err := s.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	entry, err := s.compute(ctx, p, filter)
	if err != nil {
		return nil, err
	}
	if key, ok := s.key(ctx, p, filter); ok {
		s.put(ctx, key, entry)
	}
	return entry, nil
}

// key builds the cache key from the profile content, the catalog version and
// the filter. It reports false when either version is unavailable, in which
// case the cache is bypassed.
func (s *MatchService) key(ctx context.Context, p *types.Profile, filter types.PostingFilter) (string, bool) {
	catalog, err := s.store.CatalogVersion(ctx)
	if err != nil {
		s.logger.Warn("catalog version unavailable, bypassing cache", zap.Error(err))
		return "", false
	}
	version, err := profileVersion(p)
	if err != nil {
		s.logger.Warn("profile version unavailable, bypassing cache", zap.Error(err))
		return "", false
	}
	return cache.MatchKey(p.ID, version, catalog, filter.Values()), true
}

// profileVersion hashes the stored profile, so any change to its entities
// or scores moves its matches to a new key.
func profileVersion(p *types.Profile) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func (s *MatchService) profile(ctx context.Context, profileID string) (*types.Profile, error) {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

func (s *MatchService) put(ctx context.Context, key string, entry *cache.Entry) {
	if err := cache.PutEntry(ctx, s.cache, key, entry); err != nil {
		s.logger.Warn("failed to cache matches", zap.String("key", key), zap.Error(err))
	}
}

func (s *MatchService) compute(ctx context.Context, p *types.Profile, filter types.PostingFilter) (*cache.Entry, error) {
	postings, err := s.store.ListPostings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load postings: %w", err)
	}

	results := ranking.Top(ranking.Rank(p, postings, s.ranking), s.topN)
	now := s.now()
	return &cache.Entry{
		Recommendations: results,
		TotalConsidered: len(postings),
		GeneratedAt:     now,
		ExpiresAt:       now.Add(s.ttl),
	}, nil
}

func response(profileID string, entry *cache.Entry, limit int, cached bool) *MatchResponse {
	recs := ranking.Top(entry.Recommendations, limit)
	matches := make([]Match, len(recs))
	for i, r := range recs {
		matches[i] = Match{PostingID: r.PostingID, TotalScore: r.TotalScore, Breakdown: r.Breakdown}
	}
	return &MatchResponse{
		ProfileID:       profileID,
		Matches:         matches,
		TotalConsidered: entry.TotalConsidered,
		GeneratedAt:     entry.GeneratedAt,
		Cached:          cached,
	}
}
