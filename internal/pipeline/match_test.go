package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-matcher/internal/cache"
	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/profile"
	"github.com/jonathan/resume-matcher/internal/types"
)

func storeWithProfile(t *testing.T) *db.MemoryStore {
	t.Helper()
	store := seedStore(t)
	p := profile.Build(context.Background(), sampleResume, profile.Options{ID: "prof-1", Now: fixedNow})
	require.NoError(t, store.SaveProfile(context.Background(), p))
	return store
}

func TestMatchService_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store := storeWithProfile(t)
	svc := NewMatchService(store, cache.NewMemoryCache(fixedNow), MatchOptions{Now: fixedNow})

	first, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 3, first.TotalConsidered)
	require.Len(t, first.Matches, 3)
	assert.Equal(t, "go-backend", first.Matches[0].PostingID)
	assert.Equal(t, fixedNow(), first.GeneratedAt)

	second, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, first.TotalConsidered, second.TotalConsidered)
}

func TestMatchService_ScoresAreOrdered(t *testing.T) {
	store := storeWithProfile(t)
	svc := NewMatchService(store, nil, MatchOptions{Now: fixedNow})

	resp, err := svc.GetMatches(context.Background(), "prof-1", Filters{})
	require.NoError(t, err)
	for i := 1; i < len(resp.Matches); i++ {
		assert.GreaterOrEqual(t, resp.Matches[i-1].TotalScore, resp.Matches[i].TotalScore)
	}
	for _, m := range resp.Matches {
		assert.GreaterOrEqual(t, m.TotalScore, 0.0)
		assert.LessOrEqual(t, m.TotalScore, 1.0)
	}
}

func TestMatchService_Limit(t *testing.T) {
	store := storeWithProfile(t)
	svc := NewMatchService(store, cache.NewMemoryCache(fixedNow), MatchOptions{Now: fixedNow, TopN: 2})

	resp, err := svc.GetMatches(context.Background(), "prof-1", Filters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 1)
	assert.Equal(t, 3, resp.TotalConsidered)

	// Limits above TopN are capped.
	resp, err = svc.GetMatches(context.Background(), "prof-1", Filters{Limit: 50})
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Len(t, resp.Matches, 2)
}

func TestMatchService_FiltersUseSeparateEntries(t *testing.T) {
	ctx := context.Background()
	store := storeWithProfile(t)
	svc := NewMatchService(store, cache.NewMemoryCache(fixedNow), MatchOptions{Now: fixedNow})

	_, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)

	remote, err := svc.GetMatches(ctx, "prof-1", Filters{PostingFilter: types.PostingFilter{RemoteOnly: true}})
	require.NoError(t, err)
	assert.False(t, remote.Cached)
	assert.Equal(t, 1, remote.TotalConsidered)
	require.Len(t, remote.Matches, 1)
	assert.Equal(t, "remote-data", remote.Matches[0].PostingID)
}

func TestMatchService_CatalogChangeInvalidates(t *testing.T) {
	ctx := context.Background()
	store := storeWithProfile(t)
	svc := NewMatchService(store, cache.NewMemoryCache(fixedNow), MatchOptions{Now: fixedNow})

	_, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)

	require.NoError(t, store.PublishPosting(ctx, &types.Posting{
		ID:        "new",
		Title:     "Go Engineer",
		Skills:    []types.SkillRequirement{{Name: "Go", Importance: types.ImportanceRequired}},
		CreatedAt: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
	}))

	resp, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 4, resp.TotalConsidered)
}

func TestMatchService_ProfileChangeInvalidatesFilteredEntries(t *testing.T) {
	ctx := context.Background()
	store := storeWithProfile(t)
	svc := NewMatchService(store, cache.NewMemoryCache(fixedNow), MatchOptions{Now: fixedNow})
	remoteOnly := Filters{PostingFilter: types.PostingFilter{RemoteOnly: true}}

	before, err := svc.GetMatches(ctx, "prof-1", remoteOnly)
	require.NoError(t, err)
	require.Len(t, before.Matches, 1)

	// Re-processing the subject drops the Kafka experience the remote posting asks for.
	rebuilt := profile.Build(ctx, "Jane Doe\n\nSummary\nFrontend developer.\n", profile.Options{ID: "prof-1", Now: fixedNow})
	require.NoError(t, store.SaveProfile(ctx, rebuilt))
	_, err = svc.Refresh(ctx, "prof-1", types.PostingFilter{})
	require.NoError(t, err)

	after, err := svc.GetMatches(ctx, "prof-1", remoteOnly)
	require.NoError(t, err)
	assert.False(t, after.Cached)

	fresh, err := NewMatchService(store, nil, MatchOptions{Now: fixedNow}).GetMatches(ctx, "prof-1", remoteOnly)
	require.NoError(t, err)
	assert.Equal(t, fresh.Matches, after.Matches)
	assert.Less(t, after.Matches[0].TotalScore, before.Matches[0].TotalScore)
}

func TestMatchService_CacheExpiry(t *testing.T) {
	ctx := context.Background()
	store := storeWithProfile(t)
	now := fixedNow()
	clock := func() time.Time { return now }
	svc := NewMatchService(store, cache.NewMemoryCache(clock), MatchOptions{Now: clock, TTL: time.Minute})

	_, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	resp, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)
	assert.True(t, resp.Cached)

	now = now.Add(time.Minute)
	resp, err = svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
}

func TestMatchService_UnknownProfile(t *testing.T) {
	svc := NewMatchService(seedStore(t), nil, MatchOptions{})
	_, err := svc.GetMatches(context.Background(), "ghost", Filters{})
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

type versionlessStore struct {
	*db.MemoryStore
}

func (versionlessStore) CatalogVersion(context.Context) (string, error) {
	return "", errors.New("connection reset")
}

func TestMatchService_BypassesCacheWithoutCatalogVersion(t *testing.T) {
	ctx := context.Background()
	store := versionlessStore{storeWithProfile(t)}
	c := cache.NewMemoryCache(fixedNow)
	svc := NewMatchService(store, c, MatchOptions{Now: fixedNow})

	resp, err := svc.GetMatches(ctx, "prof-1", Filters{})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 3)
	assert.Equal(t, 0, c.Len())
}
