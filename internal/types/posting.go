package types

import "time"

// Importance of a posting skill requirement.
type Importance string

const (
	ImportanceRequired   Importance = "required"
	ImportancePreferred  Importance = "preferred"
	ImportanceNiceToHave Importance = "nice-to-have"
)

// Posting is a published record a Profile is matched against. Postings are never
// mutated after publication.
type Posting struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Company        string             `json:"company,omitempty"`
	Skills         []SkillRequirement `json:"skills"`
	Keywords       []string           `json:"keywords,omitempty"`
	Experience     ExperienceRange    `json:"experience"`
	MinimumDegree  *DegreeLevel       `json:"minimum_degree,omitempty"`
	Location       Location           `json:"location"`
	Salary         SalaryRange        `json:"salary"`
	EmploymentType string             `json:"employment_type,omitempty"` // full_time, part_time, contract
	SeniorityLevel string             `json:"seniority_level,omitempty"` // junior, mid, senior, lead
	CreatedAt      time.Time          `json:"created_at"`
}

// SkillRequirement is a named skill with its importance for the posting.
type SkillRequirement struct {
	Name       string     `json:"name"`
	Importance Importance `json:"importance"`
}

// ExperienceRange is the accepted years-of-experience window. A zero MinYears with a nil
// MaxYears means the posting states no requirement.
type ExperienceRange struct {
	MinYears float64  `json:"min_years"`
	MaxYears *float64 `json:"max_years,omitempty"`
}

// Location describes where a posting or a candidate is.
type Location struct {
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	IsRemote bool   `json:"is_remote,omitempty"`
}

// IsUnknown reports whether no geographic component is set.
func (l Location) IsUnknown() bool {
	return l.City == "" && l.State == "" && l.Country == ""
}

// SalaryRange is an optional salary window.
type SalaryRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}
