package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-matcher/internal/ingestion"
	"github.com/jonathan/resume-matcher/internal/types"
)

var institutionPattern = regexp.MustCompile(`(?i)\b(university|universit[aäé]t?|college|institute|school|academy|polytechnic)\b`)

// fieldPattern captures the field of study following "in" or "of <Arts|Science|...> in".
var fieldPattern = regexp.MustCompile(`(?i)\bin\s+([A-Za-z&/ .-]+)`)

// ExtractEducation builds education records from the lines of an education section.
// A line naming a degree opens a record; institution lines and year pairs attach to
// the open record.
func ExtractEducation(lines []string) []types.EducationEntry {
	var entries []types.EducationEntry
	open := -1

	for _, raw := range lines {
		line := ingestion.StripBullet(raw)
		if line == "" {
			continue
		}

		level, degreeLoc := matchDegree(line)
		isInstitution := institutionPattern.MatchString(line)

		switch {
		case degreeLoc != nil:
			if open < 0 || entries[open].Degree != "" {
				entries = append(entries, types.EducationEntry{})
				open = len(entries) - 1
			}
			entries[open].Degree = degreeName(line)
			entries[open].DegreeLevel = level
			entries[open].Field = fieldOfStudy(line)
			if isInstitution && entries[open].Institution == "" {
				entries[open].Institution = institutionName(line)
			}
		case isInstitution:
			if open < 0 || entries[open].Institution != "" {
				entries = append(entries, types.EducationEntry{})
				open = len(entries) - 1
			}
			entries[open].Institution = institutionName(line)
		}

		if open >= 0 {
			applyYears(&entries[open], FindYears(line))
		}
	}

	return entries
}

func applyYears(entry *types.EducationEntry, years []int) {
	switch {
	case len(years) >= 2:
		entry.StartYear, entry.EndYear = years[0], years[1]
	case len(years) == 1 && entry.EndYear == 0:
		entry.EndYear = years[0]
	}
}

// degreeName is the line up to the first comma or separator, without dates.
func degreeName(line string) string {
	name := stripDates(line)
	for _, sep := range []string{",", " | ", " - ", " – ", " at "} {
		if head, _, found := strings.Cut(name, sep); found && !institutionPattern.MatchString(head) {
			name = head
			break
		}
	}
	return trimSeparators(name)
}

func fieldOfStudy(line string) string {
	m := fieldPattern.FindStringSubmatch(stripDates(line))
	if m == nil {
		return ""
	}
	field := m[1]
	for _, sep := range []string{",", " | ", " - ", " at ", " from "} {
		if head, _, found := strings.Cut(field, sep); found {
			field = head
		}
	}
	return trimSeparators(strings.TrimSuffix(strings.TrimSpace(field), "."))
}

// institutionName picks the comma-separated part of line that names the institution.
func institutionName(line string) string {
	for _, part := range strings.FieldsFunc(stripDates(line), func(r rune) bool { return r == ',' || r == '|' }) {
		if institutionPattern.MatchString(part) {
			return trimSeparators(part)
		}
	}
	return trimSeparators(stripDates(line))
}
