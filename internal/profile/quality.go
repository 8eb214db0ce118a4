package profile

import (
	"math"
	"time"

	"github.com/jonathan/resume-matcher/internal/types"
)

// HighConfidence is the confidence at or above which a skill earns the bonus.
const HighConfidence = 0.9

const daysPerYear = 365.25

// educationPoints per degree level; levels not listed earn nothing.
var educationPoints = map[types.DegreeLevel]int{
	types.DegreeDoctorate: 40,
	types.DegreeMaster:    30,
	types.DegreeBachelor:  20,
	types.DegreeAssociate: 10,
}

// SkillsScore is min(100, 10 per skill + 5 per high-confidence skill + 10 per distinct category).
func SkillsScore(skills []types.Skill) int {
	highConfidence := 0
	categories := make(map[string]struct{})
	for _, s := range skills {
		if s.Confidence >= HighConfidence {
			highConfidence++
		}
		if s.Category != "" {
			categories[s.Category] = struct{}{}
		}
	}
	return min(100, 10*len(skills)+5*highConfidence+10*len(categories))
}

// ExperienceScore is min(100, 20 per year of experience), rounded.
func ExperienceScore(totalYears float64) int {
	return int(math.Round(math.Min(100, 20*math.Max(0, totalYears))))
}

// EducationScore sums degree points, capped at 100.
func EducationScore(entries []types.EducationEntry) int {
	total := 0
	for _, e := range entries {
		total += educationPoints[e.DegreeLevel]
	}
	return min(100, total)
}

// TotalYears sums the length of every entry with a known start and end. Entries marked
// current run until asOf; with a zero asOf they are skipped. Negative spans count as zero.
func TotalYears(entries []types.ExperienceEntry, asOf time.Time) float64 {
	var total float64
	for _, e := range entries {
		if e.Start == nil {
			continue
		}
		var end time.Time
		switch {
		case e.End != nil:
			end = *e.End
		case e.Current && !asOf.IsZero():
			end = asOf
		default:
			continue
		}
		if days := end.Sub(*e.Start).Hours() / 24; days > 0 {
			total += days / daysPerYear
		}
	}
	return total
}

// ComputeQuality derives all sub-scores and the overall score from the profile's
// entity sets. Overall is the rounded mean of the three sub-scores.
func ComputeQuality(p *types.Profile, asOf time.Time) types.QualityScore {
	q := types.QualityScore{
		Skills:     SkillsScore(p.Skills),
		Experience: ExperienceScore(TotalYears(p.Experience, asOf)),
		Education:  EducationScore(p.Education),
	}
	q.Overall = int(math.Round(float64(q.Skills+q.Experience+q.Education) / 3))
	return q
}

// Rescore recomputes YearsOfExperience and Quality from the current entities.
// Calling it repeatedly with the same asOf yields the same result.
func Rescore(p *types.Profile, asOf time.Time) {
	p.YearsOfExperience = TotalYears(p.Experience, asOf)
	p.Quality = ComputeQuality(p, asOf)
}
