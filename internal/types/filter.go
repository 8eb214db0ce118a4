package types

import (
	"net/url"
	"strconv"
	"strings"
)

// PostingFilter narrows the postings a profile is matched against.
// Zero-valued fields do not filter.
type PostingFilter struct {
	Location       string `json:"location,omitempty" mapstructure:"location"`
	RemoteOnly     bool   `json:"remote_only,omitempty" mapstructure:"remote_only"`
	MinSalary      int    `json:"min_salary,omitempty" mapstructure:"min_salary" validate:"gte=0"`
	MaxSalary      int    `json:"max_salary,omitempty" mapstructure:"max_salary" validate:"gte=0"`
	EmploymentType string `json:"employment_type,omitempty" mapstructure:"employment_type"`
	SeniorityLevel string `json:"seniority_level,omitempty" mapstructure:"seniority_level"`
}

// Matches reports whether p passes every set filter.
//
// Location matches any of city, state or country case-insensitively.
// MinSalary keeps postings whose maximum is unknown or at least MinSalary;
// MaxSalary keeps postings whose minimum is unknown or at most MaxSalary.
func (f PostingFilter) Matches(p Posting) bool {
	if f.RemoteOnly && !p.Location.IsRemote {
		return false
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		if !strings.EqualFold(p.Location.City, loc) &&
			!strings.EqualFold(p.Location.State, loc) &&
			!strings.EqualFold(p.Location.Country, loc) {
			return false
		}
	}
	if f.MinSalary > 0 && p.Salary.Max != nil && *p.Salary.Max < f.MinSalary {
		return false
	}
	if f.MaxSalary > 0 && p.Salary.Min != nil && *p.Salary.Min > f.MaxSalary {
		return false
	}
	if f.EmploymentType != "" && !strings.EqualFold(p.EmploymentType, f.EmploymentType) {
		return false
	}
	if f.SeniorityLevel != "" && !strings.EqualFold(p.SeniorityLevel, f.SeniorityLevel) {
		return false
	}
	return true
}

// Values encodes the set filters for use in cache keys. Unset filters are omitted
// and string values are lower-cased so equivalent filters encode identically.
func (f PostingFilter) Values() url.Values {
	v := url.Values{}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		v.Set("location", strings.ToLower(loc))
	}
	if f.RemoteOnly {
		v.Set("remote", "true")
	}
	if f.MinSalary > 0 {
		v.Set("min_salary", strconv.Itoa(f.MinSalary))
	}
	if f.MaxSalary > 0 {
		v.Set("max_salary", strconv.Itoa(f.MaxSalary))
	}
	if f.EmploymentType != "" {
		v.Set("employment_type", strings.ToLower(f.EmploymentType))
	}
	if f.SeniorityLevel != "" {
		v.Set("seniority", strings.ToLower(f.SeniorityLevel))
	}
	return v
}
