package ingestion

import "strings"

// Section names recognized by Segment.
const (
	SectionSummary        = "summary"
	SectionEducation      = "education"
	SectionExperience     = "experience"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionLanguages      = "languages"
)

// SectionOrder is the priority order used when a header line matches several sections.
var SectionOrder = []string{
	SectionSummary,
	SectionEducation,
	SectionExperience,
	SectionProjects,
	SectionCertifications,
	SectionLanguages,
}

// sectionKeywords are matched case-insensitively as substrings of a header line.
var sectionKeywords = map[string][]string{
	SectionSummary:        {"summary", "profile", "objective", "about me"},
	SectionEducation:      {"education", "academic", "qualification"},
	SectionExperience:     {"experience", "employment", "work history", "career"},
	SectionProjects:       {"projects", "portfolio"},
	SectionCertifications: {"certification", "certificates", "licenses"},
	SectionLanguages:      {"languages"},
}

// maxHeaderLength bounds how long a line may be and still count as a section header.
// Longer lines are prose and never move the cursor. Bullet lines are never headers.
const maxHeaderLength = 60

// Sections maps a section name to its lines in document order.
type Sections map[string][]string

// Lines returns the lines of a section (nil if the section is empty).
func (s Sections) Lines(name string) []string {
	return s[name]
}

// Text joins the lines of a section with newlines.
func (s Sections) Text(name string) string {
	return strings.Join(s[name], "\n")
}

// Segment splits lines into labeled sections. A line containing a section keyword
// switches the current section; every other line is appended to the current section.
// Lines before the first recognized header are discarded. Every known section is
// present in the result, possibly empty.
func Segment(lines []string) Sections {
	sections := make(Sections, len(SectionOrder))
	for _, name := range SectionOrder {
		sections[name] = []string{}
	}

	current := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if header, ok := matchHeader(trimmed); ok {
			current = header
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], trimmed)
		}
	}

	return sections
}

// matchHeader returns the first section in SectionOrder whose keywords appear in the line.
func matchHeader(line string) (string, bool) {
	if len(line) > maxHeaderLength || StripBullet(line) != line {
		return "", false
	}
	lower := strings.ToLower(strings.Trim(line, "#*:-=_ \t"))
	for _, name := range SectionOrder {
		for _, keyword := range sectionKeywords[name] {
			if strings.Contains(lower, keyword) {
				return name, true
			}
		}
	}
	return "", false
}
