// Package types provides the data model shared by the intake, scoring and matching pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Profile is the structured representation of an uploaded document.
// Quality is derived from the entity sets and is only written by the profile scorer.
type Profile struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id,omitempty"`
	RawText           string            `json:"raw_text,omitempty"`
	Contact           Contact           `json:"contact"`
	Location          Location          `json:"location"`
	Skills            []Skill           `json:"skills"`
	Experience        []ExperienceEntry `json:"experience"`
	Education         []EducationEntry  `json:"education"`
	Summary           string            `json:"summary,omitempty"`
	YearsOfExperience float64           `json:"years_of_experience"`
	Quality           QualityScore      `json:"quality"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Contact holds contact details found in the document header.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// IsEmpty reports whether no contact field was extracted.
func (c Contact) IsEmpty() bool {
	return c.Email == "" && c.Phone == "" && c.LinkedIn == "" && c.GitHub == ""
}

// Skill is a recognized skill with its category and extraction confidence (0-1).
type Skill struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ExperienceEntry is a single employment record. Start and End are nil when unknown;
// Current marks an open-ended ("present") entry.
type ExperienceEntry struct {
	Employer string     `json:"employer,omitempty"`
	Title    string     `json:"title,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Current  bool       `json:"current,omitempty"`
}

// EducationEntry is a single degree record.
type EducationEntry struct {
	Institution string      `json:"institution,omitempty"`
	Degree      string      `json:"degree,omitempty"`
	DegreeLevel DegreeLevel `json:"degree_level"`
	Field       string      `json:"field,omitempty"`
	StartYear   int         `json:"start_year,omitempty"`
	EndYear     int         `json:"end_year,omitempty"`
}

// QualityScore holds the profile sub-scores (0-100 each).
type QualityScore struct {
	Overall    int `json:"overall"`
	Skills     int `json:"skills"`
	Experience int `json:"experience"`
	Education  int `json:"education"`
}

// DegreeLevel is the ordinal level of a degree. The zero value means unknown.
type DegreeLevel int

const (
	DegreeUnknown DegreeLevel = iota
	DegreeHighSchool
	DegreeAssociate
	DegreeBachelor
	DegreeMaster
	DegreeDoctorate
)

var degreeLevelNames = map[DegreeLevel]string{
	DegreeUnknown:    "unknown",
	DegreeHighSchool: "high_school",
	DegreeAssociate:  "associate",
	DegreeBachelor:   "bachelor",
	DegreeMaster:     "master",
	DegreeDoctorate:  "doctorate",
}

func (d DegreeLevel) String() string {
	if name, ok := degreeLevelNames[d]; ok {
		return name
	}
	return "unknown"
}

// ParseDegreeLevel converts a level name (as produced by String) back to a DegreeLevel.
func ParseDegreeLevel(s string) DegreeLevel {
	for level, name := range degreeLevelNames {
		if name == s {
			return level
		}
	}
	return DegreeUnknown
}
