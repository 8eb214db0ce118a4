package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-matcher/internal/ingestion"
	"github.com/jonathan/resume-matcher/internal/types"
)

var (
	employerPattern = regexp.MustCompile(`(?i)\b(inc|llc|l\.l\.c|ltd|limited|corp|corporation|gmbh|company|plc|s\.a|technologies|labs|group|holdings|partners|solutions|systems)\b\.?`)
	rolePattern     = regexp.MustCompile(`(?i)\b(engineer|developer|programmer|manager|analyst|designer|architect|consultant|scientist|intern|lead|director|administrator|specialist|officer|coordinator|head of|vp|cto|ceo|founder|researcher|technician|associate)s?\b`)
)

// titleSeparators split a single "Title at Employer" style line into its parts.
var titleSeparators = []string{" at ", " @ ", " | ", " – ", " — ", " - ", ", "}

// ExtractExperience builds employment records from the lines of an experience section.
// A line with an employer suffix or a role keyword opens a record; a line of the other
// kind attaches to the open record. Date ranges attach to the open record. Bullet lines
// are descriptions and never open records.
func ExtractExperience(lines []string) []types.ExperienceEntry {
	var entries []types.ExperienceEntry
	open := -1

	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		isBullet := ingestion.StripBullet(trimmed) != trimmed
		dates, hasDates := ParseDateRange(trimmed)

		if !isBullet {
			title, employer := splitTitleEmployer(stripDates(trimmed))
			switch {
			case title != "" && employer != "":
				entries = append(entries, types.ExperienceEntry{Title: title, Employer: employer})
				open = len(entries) - 1
			case employer != "":
				if open < 0 || entries[open].Employer != "" {
					entries = append(entries, types.ExperienceEntry{})
					open = len(entries) - 1
				}
				entries[open].Employer = employer
			case title != "":
				if open < 0 || entries[open].Title != "" {
					entries = append(entries, types.ExperienceEntry{})
					open = len(entries) - 1
				}
				entries[open].Title = title
			}
		}

		if hasDates && open >= 0 && entries[open].Start == nil {
			entries[open].Start = dates.Start
			entries[open].End = dates.End
			entries[open].Current = dates.Current
		}
	}

	return entries
}

// splitTitleEmployer classifies the parts of a line as a job title and/or an employer.
func splitTitleEmployer(line string) (title, employer string) {
	if line == "" {
		return "", ""
	}

	parts := []string{line}
	for _, sep := range titleSeparators {
		if strings.Contains(line, sep) {
			parts = strings.Split(line, sep)
			break
		}
	}

	for _, part := range parts {
		part = trimSeparators(part)
		if part == "" {
			continue
		}
		switch {
		case employer == "" && employerPattern.MatchString(part) && !(len(parts) == 1 && rolePattern.MatchString(part)):
			employer = part
		case title == "" && rolePattern.MatchString(part):
			title = part
		}
	}

	// "Engineer at Acme" or "Engineer, Acme" names an employer without a suffix.
	if title != "" && employer == "" && len(parts) == 2 {
		for _, part := range parts {
			if part = trimSeparators(part); part != title && !rolePattern.MatchString(part) {
				employer = part
			}
		}
	}

	return title, employer
}
