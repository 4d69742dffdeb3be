package models

import (
	"time"
)

// AttemptResult is the recorded outcome of a single attempt.
type AttemptResult string

const (
	AttemptPending AttemptResult = "PENDING"
	AttemptGood    AttemptResult = "GOOD"
	AttemptFailed  AttemptResult = "FAILED"
)

// Attempt holds the weights asked for and the outcome of one of the six tries.
// Weights are whole kilograms; zero means "not asked".
type Attempt struct {
	Declaration int           `json:"declaration,omitempty"`
	Change1     int           `json:"change1,omitempty"`
	Change2     int           `json:"change2,omitempty"`
	Weight      int           `json:"weight,omitempty"` // weight on the bar when the lift was recorded
	Result      AttemptResult `json:"result,omitempty"`
	ChangedAt   *time.Time    `json:"changed_at,omitempty"`
	LiftedAt    *time.Time    `json:"lifted_at,omitempty"`
}

// Done reports whether an outcome has been recorded.
func (a Attempt) Done() bool {
	return a.Result == AttemptGood || a.Result == AttemptFailed
}

// Requested returns the most recent weight asked for, or 0 when nothing was declared.
func (a Attempt) Requested() int {
	switch {
	case a.Change2 > 0:
		return a.Change2
	case a.Change1 > 0:
		return a.Change1
	default:
		return a.Declaration
	}
}

// Changes returns how many weight changes were made after the declaration.
func (a Attempt) Changes() int {
	n := 0
	if a.Change1 > 0 {
		n++
	}
	if a.Change2 > 0 {
		n++
	}
	return n
}

// Best returns the weight of a good lift, 0 otherwise.
func (a Attempt) Best() int {
	if a.Result == AttemptGood {
		return a.Weight
	}
	return 0
}
