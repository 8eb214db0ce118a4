// Package ranking scores profiles against postings and orders the results.
package ranking

import (
	"math"
	"sort"

	"github.com/jonathan/resume-matcher/internal/types"
)

// Options configure scoring. Zero values select DefaultWeights and NeutralSalary.
type Options struct {
	Weights Weights
	Salary  SalaryComparator
}

func (o Options) withDefaults() Options {
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights()
	}
	if o.Salary == nil {
		o.Salary = NeutralSalary{}
	}
	return o
}

// Score computes the five factor scores for a profile/posting pair and combines them
// with the configured weights. Scoring reads no clock and has no side effects.
func Score(p *types.Profile, posting *types.Posting, opts Options) types.MatchResult {
	return score(p, indexProfile(p), posting, opts.withDefaults())
}

func score(p *types.Profile, idx *profileIndex, posting *types.Posting, opts Options) types.MatchResult {
	b := types.Breakdown{
		Skills:     clamp01(skillsScore(idx, posting)),
		Experience: clamp01(experienceScore(p, posting)),
		Location:   clamp01(locationScore(p, posting)),
		Salary:     clamp01(opts.Salary.CompareSalary(p, posting)),
		Education:  clamp01(educationScore(p, posting)),
	}

	w := opts.Weights
	total := w.Skills*b.Skills +
		w.Experience*b.Experience +
		w.Location*b.Location +
		w.Salary*b.Salary +
		w.Education*b.Education

	return types.MatchResult{
		ProfileID:        p.ID,
		PostingID:        posting.ID,
		TotalScore:       clamp01(total),
		Breakdown:        b,
		PostingCreatedAt: posting.CreatedAt,
	}
}

// Rank scores every posting and orders the results by total score (descending), then
// posting creation time (newest first), then posting ID.
func Rank(p *types.Profile, postings []types.Posting, opts Options) []types.MatchResult {
	opts = opts.withDefaults()
	idx := indexProfile(p)

	results := make([]types.MatchResult, 0, len(postings))
	for i := range postings {
		results = append(results, score(p, idx, &postings[i], opts))
	}
	SortResults(results)
	return results
}

// SortResults orders results with the ranking tie-break policy.
func SortResults(results []types.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.PostingCreatedAt.Equal(b.PostingCreatedAt) {
			return a.PostingCreatedAt.After(b.PostingCreatedAt)
		}
		return a.PostingID < b.PostingID
	})
}

// Top returns at most n results; n <= 0 returns all of them.
func Top(results []types.MatchResult, n int) []types.MatchResult {
	if n <= 0 || n >= len(results) {
		return results
	}
	return results[:n]
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
