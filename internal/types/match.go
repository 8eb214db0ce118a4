package types

import "time"

// Breakdown holds the five factor scores of a match, each in [0,1].
type Breakdown struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Location   float64 `json:"location"`
	Salary     float64 `json:"salary"`
	Education  float64 `json:"education"`
}

// MatchResult is the scored outcome of comparing one Profile to one Posting.
// A new match always produces a new value.
type MatchResult struct {
	ProfileID        string    `json:"profile_id"`
	PostingID        string    `json:"posting_id"`
	TotalScore       float64   `json:"total_score"`
	Breakdown        Breakdown `json:"breakdown"`
	PostingCreatedAt time.Time `json:"posting_created_at"`
}
