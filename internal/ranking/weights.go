package ranking

import (
	"fmt"
	"math"
)

// weightTolerance is how far the weight sum may drift from 1.
const weightTolerance = 1e-9

// Weights are the factor weights of the total match score. They must be non-negative
// and sum to 1.
type Weights struct {
	Skills     float64 `mapstructure:"skills" json:"skills"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Location   float64 `mapstructure:"location" json:"location"`
	Salary     float64 `mapstructure:"salary" json:"salary"`
	Education  float64 `mapstructure:"education" json:"education"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		Skills:     0.40,
		Experience: 0.25,
		Location:   0.15,
		Salary:     0.10,
		Education:  0.10,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Skills + w.Experience + w.Location + w.Salary + w.Education
}

// Validate checks that every weight is non-negative and that they sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills":     w.Skills,
		"experience": w.Experience,
		"location":   w.Location,
		"salary":     w.Salary,
		"education":  w.Education,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}
