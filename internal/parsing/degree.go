package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-matcher/internal/types"
)

// degreePatterns are checked from the highest level down so "PhD, MSc" classifies as
// a doctorate.
var degreePatterns = []struct {
	level   types.DegreeLevel
	pattern *regexp.Regexp
}{
	{types.DegreeDoctorate, regexp.MustCompile(`(?i)\b(ph\.?\s?d|doctor(ate)?|d\.phil|doctoral)\b`)},
	{types.DegreeMaster, regexp.MustCompile(`(?i)\b(master'?s?|mba|m\.?sc?|m\.a|m\.?eng|m\.?tech)\b`)},
	{types.DegreeBachelor, regexp.MustCompile(`(?i)\b(bachelor'?s?|b\.?sc?|b\.a|ba|b\.?eng|b\.?tech|undergraduate)\b`)},
	{types.DegreeAssociate, regexp.MustCompile(`(?i)\b(associate'?s?\s+(degree|of|in)|a\.a\.?s?|a\.s)\b`)},
	{types.DegreeHighSchool, regexp.MustCompile(`(?i)\b(high\s+school|secondary\s+school|ged|diploma)\b`)},
}

// ClassifyDegree returns the degree level named in text, or DegreeUnknown.
func ClassifyDegree(text string) types.DegreeLevel {
	level, _ := matchDegree(text)
	return level
}

func matchDegree(text string) (types.DegreeLevel, []int) {
	for _, dp := range degreePatterns {
		if loc := dp.pattern.FindStringIndex(text); loc != nil {
			return dp.level, loc
		}
	}
	return types.DegreeUnknown, nil
}

// NormalizeDegreeLevel maps a free-form degree name ("PhD", "Master's", "bachelor")
// onto a DegreeLevel. Level names produced by DegreeLevel.String are accepted too.
func NormalizeDegreeLevel(degree string) types.DegreeLevel {
	degree = strings.ToLower(strings.TrimSpace(degree))
	if level := types.ParseDegreeLevel(degree); level != types.DegreeUnknown {
		return level
	}

	switch {
	case strings.Contains(degree, "phd") || strings.Contains(degree, "doctor"):
		return types.DegreeDoctorate
	case strings.Contains(degree, "master"):
		return types.DegreeMaster
	case strings.Contains(degree, "bachelor"):
		return types.DegreeBachelor
	case strings.Contains(degree, "associate"):
		return types.DegreeAssociate
	case strings.Contains(degree, "high school"):
		return types.DegreeHighSchool
	default:
		return ClassifyDegree(degree)
	}
}
