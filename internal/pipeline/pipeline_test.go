package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/notify"
	"github.com/jonathan/resume-matcher/internal/types"
)

const sampleResume = `Jane Doe
jane@example.com | Austin, TX | 512-555-0100

Summary
Backend engineer who enjoys Go and PostgreSQL.

Experience
Senior Software Engineer
Acme Inc.
Jan 2019 - Present
- Built Kafka pipelines on AWS

Education
Master of Science in Computer Science, Stanford University, 2014 - 2016
`

func fixedNow() time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 { return &v }

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Publish(ctx context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) list() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// seedStore returns a store holding the sample document and three postings.
func seedStore(t *testing.T) *db.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryStore()

	require.NoError(t, store.SaveDocument(ctx, &db.Document{
		ID:        "doc-1",
		UserID:    "user-1",
		MediaType: "text/plain",
		Content:   []byte(sampleResume),
	}))

	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	postings := []*types.Posting{
		{
			ID:         "go-backend",
			Title:      "Backend Engineer",
			Skills:     []types.SkillRequirement{{Name: "Go", Importance: types.ImportanceRequired}, {Name: "PostgreSQL", Importance: types.ImportancePreferred}},
			Experience: types.ExperienceRange{MinYears: 3, MaxYears: floatPtr(8)},
			Location:   types.Location{City: "Austin", State: "TX", Country: "US"},
			CreatedAt:  base,
		},
		{
			ID:             "remote-data",
			Title:          "Data Engineer",
			Skills:         []types.SkillRequirement{{Name: "Kafka", Importance: types.ImportanceRequired}, {Name: "Spark", Importance: types.ImportanceRequired}},
			Experience:     types.ExperienceRange{MinYears: 2},
			Location:       types.Location{IsRemote: true},
			EmploymentType: "contract",
			CreatedAt:      base.Add(24 * time.Hour),
		},
		{
			ID:        "ios",
			Title:     "iOS Engineer",
			Skills:    []types.SkillRequirement{{Name: "Swift", Importance: types.ImportanceRequired}},
			Location:  types.Location{City: "Paris", Country: "France"},
			CreatedAt: base.Add(48 * time.Hour),
		},
	}
	for _, p := range postings {
		require.NoError(t, store.PublishPosting(ctx, p))
	}
	return store
}
