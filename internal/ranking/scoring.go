package ranking

import (
	"math"
	"strings"

	"github.com/jonathan/resume-matcher/internal/parsing"
	"github.com/jonathan/resume-matcher/internal/types"
)

// Factor scores used when one side carries no information.
const (
	NeutralSkillsScore     = 0.5
	NoExperienceRangeScore = 0.8
	UnknownLocationScore   = 0.5
	UnknownEducationScore  = 0.7
)

// importanceWeights weight each skill requirement by its importance.
var importanceWeights = map[types.Importance]float64{
	types.ImportanceRequired:   1.0,
	types.ImportancePreferred:  0.7,
	types.ImportanceNiceToHave: 0.3,
}

const (
	keywordBonusStep = 0.05
	keywordBonusMax  = 0.2
)

// profileIndex holds the lookups skill scoring needs from one profile. Rank builds
// it once and reuses it for every posting.
type profileIndex struct {
	skills map[string]bool
	words  map[string]bool
	// text is the tokenized raw text, space separated and padded, for phrase lookups.
	text string
}

func indexProfile(p *types.Profile) *profileIndex {
	idx := &profileIndex{
		skills: make(map[string]bool, len(p.Skills)),
		words:  make(map[string]bool),
	}
	for _, s := range p.Skills {
		idx.skills[parsing.SkillKey(s.Name)] = true
	}
	tokens := parsing.Tokenize(p.RawText)
	for _, tok := range tokens {
		idx.words[tok] = true
		if strings.Contains(tok, "/") {
			for _, part := range strings.Split(tok, "/") {
				idx.words[part] = true
			}
		}
	}
	if len(tokens) > 0 {
		idx.text = " " + strings.Join(tokens, " ") + " "
	}
	return idx
}

// containsWord reports whether the keyword occurs in the profile text as whole tokens.
func (idx *profileIndex) containsWord(keyword string) bool {
	tokens := parsing.Tokenize(keyword)
	switch len(tokens) {
	case 0:
		return false
	case 1:
		return idx.words[tokens[0]]
	default:
		return strings.Contains(idx.text, " "+strings.Join(tokens, " ")+" ")
	}
}

// skillsScore is the importance-weighted fraction of requirements the profile satisfies,
// plus a bounded bonus for posting keywords the profile shows beyond the requirements.
func skillsScore(idx *profileIndex, posting *types.Posting) float64 {
	if len(posting.Skills) == 0 {
		return NeutralSkillsScore
	}

	required := make(map[string]bool, len(posting.Skills))
	var total, satisfied float64
	for _, req := range posting.Skills {
		key := parsing.SkillKey(req.Name)
		if key == "" {
			continue
		}
		weight, ok := importanceWeights[req.Importance]
		if !ok {
			weight = importanceWeights[types.ImportanceRequired]
		}
		required[key] = true
		total += weight
		if idx.skills[key] {
			satisfied += weight
		}
	}
	if total == 0 {
		return NeutralSkillsScore
	}

	score := satisfied/total + keywordBonus(idx, posting.Keywords, required)
	return math.Min(1, score)
}

// keywordBonus counts posting keywords found in the profile that are not already
// named requirements.
func keywordBonus(idx *profileIndex, keywords []string, required map[string]bool) float64 {
	counted := make(map[string]bool, len(keywords))
	hits := 0
	for _, kw := range keywords {
		key := parsing.SkillKey(kw)
		if key == "" || required[key] || counted[key] {
			continue
		}
		counted[key] = true
		if idx.skills[key] || idx.containsWord(kw) {
			hits++
		}
	}
	return math.Min(keywordBonusMax, keywordBonusStep*float64(hits))
}

// experienceScore compares the profile's years of experience with the posting range.
func experienceScore(p *types.Profile, posting *types.Posting) float64 {
	r := posting.Experience
	if r.MinYears <= 0 && r.MaxYears == nil {
		return NoExperienceRangeScore
	}

	years := p.YearsOfExperience
	switch {
	case years < r.MinYears:
		return math.Max(0.1, 1-0.2*(r.MinYears-years))
	case r.MaxYears != nil && years > *r.MaxYears:
		return math.Max(0.7, 1-0.1*(years-*r.MaxYears))
	default:
		return 1.0
	}
}

// locationScore compares where the candidate is with where the posting is.
func locationScore(p *types.Profile, posting *types.Posting) float64 {
	want, have := posting.Location, p.Location
	if want.IsRemote {
		return 1.0
	}
	if have.IsUnknown() {
		return UnknownLocationScore
	}
	if want.IsUnknown() {
		return 0.2
	}

	sameCountry := compatible(want.Country, have.Country)
	sameState := compatible(want.State, have.State)

	switch {
	case want.City != "" && strings.EqualFold(want.City, have.City) && sameCountry && sameState:
		return 1.0
	case want.State != "" && strings.EqualFold(want.State, have.State) && sameCountry:
		return 0.8
	case want.Country != "" && strings.EqualFold(want.Country, have.Country):
		return 0.6
	default:
		return 0.2
	}
}

// compatible is true when both values match or either is missing.
func compatible(a, b string) bool {
	return a == "" || b == "" || strings.EqualFold(a, b)
}

// educationScore compares the highest degree in the profile with the posting minimum.
func educationScore(p *types.Profile, posting *types.Posting) float64 {
	highest := HighestDegree(p.Education)
	if posting.MinimumDegree == nil || *posting.MinimumDegree == types.DegreeUnknown || highest == types.DegreeUnknown {
		return UnknownEducationScore
	}

	gap := int(*posting.MinimumDegree) - int(highest)
	if gap <= 0 {
		return 1.0
	}
	return math.Max(0.2, 1-0.3*float64(gap))
}

// HighestDegree returns the highest degree level among the entries.
func HighestDegree(entries []types.EducationEntry) types.DegreeLevel {
	highest := types.DegreeUnknown
	for _, e := range entries {
		if e.DegreeLevel > highest {
			highest = e.DegreeLevel
		}
	}
	return highest
}
