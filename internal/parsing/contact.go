// Package parsing extracts structured entities (contact details, skills, employment
// and education records, location) from segmented document text. Extraction never
// fails: anything that cannot be recognized is left empty.
package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-matcher/internal/types"
)

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	linkedInPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/[A-Za-z0-9_%-]+/?`)
	gitHubPattern   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9_-]+`)
)

// ExtractContact finds the first email, phone number, LinkedIn profile and GitHub
// profile in text.
func ExtractContact(text string) types.Contact {
	return types.Contact{
		Email:    emailPattern.FindString(text),
		Phone:    strings.TrimSpace(phonePattern.FindString(text)),
		LinkedIn: normalizeProfileURL(linkedInPattern.FindString(text)),
		GitHub:   normalizeProfileURL(gitHubPattern.FindString(text)),
	}
}

// normalizeProfileURL makes sure a matched profile URL carries a scheme and no trailing slash.
func normalizeProfileURL(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.TrimSuffix(raw, "/")
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	return raw
}
