package ranking

import "github.com/jonathan/resume-matcher/internal/types"

// NeutralSalaryScore is the salary factor when no comparison is possible.
const NeutralSalaryScore = 0.5

// SalaryComparator scores how well a posting's salary fits a profile (0-1).
type SalaryComparator interface {
	CompareSalary(p *types.Profile, posting *types.Posting) float64
}

// NeutralSalary scores every pair the same. Profiles carry no salary expectation, so
// this is the default comparator.
type NeutralSalary struct{}

// CompareSalary implements SalaryComparator.
func (NeutralSalary) CompareSalary(*types.Profile, *types.Posting) float64 {
	return NeutralSalaryScore
}

// SalaryFunc adapts a function to SalaryComparator.
type SalaryFunc func(p *types.Profile, posting *types.Posting) float64

// CompareSalary implements SalaryComparator.
func (f SalaryFunc) CompareSalary(p *types.Profile, posting *types.Posting) float64 {
	return f(p, posting)
}
