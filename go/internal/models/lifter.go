package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// AttemptsPerLift is the number of tries per lift (snatch, clean & jerk).
	AttemptsPerLift = 3
	// TotalAttempts is the number of attempts a lifter has in a session.
	TotalAttempts = 2 * AttemptsPerLift
)

// Lift identifies one of the two competition lifts.
type Lift string

const (
	LiftSnatch    Lift = "SNATCH"
	LiftCleanJerk Lift = "CLEAN_JERK"
	LiftCompleted Lift = "COMPLETED"
)

// Medal awarded from the result order.
type Medal string

const (
	MedalNone   Medal = ""
	MedalGold   Medal = "GOLD"
	MedalSilver Medal = "SILVER"
	MedalBronze Medal = "BRONZE"
)

// Lifter is an athlete registered in a group. Attempts[0..2] are the snatch
// attempts, Attempts[3..5] the clean & jerk attempts.
type Lifter struct {
	ID              uuid.UUID              `json:"id"`
	FirstName       string                 `json:"first_name"`
	LastName        string                 `json:"last_name"`
	Team            string                 `json:"team,omitempty"`
	GroupName       string                 `json:"group_name"`
	LotNumber       int                    `json:"lot_number"`
	BodyWeight      float64                `json:"body_weight"`
	Attempts        [TotalAttempts]Attempt `json:"attempts"`
	Withdrawn       bool                   `json:"withdrawn"`
	ForcedAsCurrent bool                   `json:"forced_as_current"`
	AttemptRank     int                    `json:"attempt_rank"` // 1-based position in the attempt order, 0 when not lifting
	ResultRank      int                    `json:"result_rank"`
	Medal           Medal                  `json:"medal,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// FullName returns "LAST, First" as shown on boards.
func (l *Lifter) FullName() string {
	if l.FirstName == "" {
		return l.LastName
	}
	return fmt.Sprintf("%s, %s", l.LastName, l.FirstName)
}

// AttemptsDone counts attempts with a recorded outcome.
func (l *Lifter) AttemptsDone() int {
	n := 0
	for _, a := range l.Attempts {
		if a.Done() {
			n++
		}
	}
	return n
}

// Finished reports whether all six attempts are done.
func (l *Lifter) Finished() bool {
	return l.AttemptsDone() >= TotalAttempts
}

// CurrentLift returns the lift the next attempt belongs to.
func (l *Lifter) CurrentLift() Lift {
	done := l.AttemptsDone()
	switch {
	case done < AttemptsPerLift:
		return LiftSnatch
	case done < TotalAttempts:
		return LiftCleanJerk
	default:
		return LiftCompleted
	}
}

// AttemptNumber returns the 1-based attempt number within the current lift.
func (l *Lifter) AttemptNumber() int {
	return l.AttemptsDone()%AttemptsPerLift + 1
}

// NextAttemptWeight returns the weight the lifter will be called at. ok is
// false when the lifter is withdrawn, finished, or has nothing requested.
func (l *Lifter) NextAttemptWeight() (weight int, ok bool) {
	if l.Withdrawn || l.Finished() {
		return 0, false
	}
	idx := l.AttemptsDone()
	if w := l.Attempts[idx].Requested(); w > 0 {
		return w, true
	}
	if w := l.automaticProgression(idx); w > 0 {
		return w, true
	}
	return 0, false
}

// Eligible reports whether the lifter can be called for another attempt.
func (l *Lifter) Eligible() bool {
	_, ok := l.NextAttemptWeight()
	return ok
}

// automaticProgression is the minimum legal weight for attempt idx: the
// previous weight after a miss, one more kilogram after a good lift.
func (l *Lifter) automaticProgression(idx int) int {
	if idx%AttemptsPerLift == 0 {
		return 0
	}
	prev := l.Attempts[idx-1]
	switch prev.Result {
	case AttemptGood:
		return prev.Weight + 1
	case AttemptFailed:
		return prev.Weight
	default:
		return 0
	}
}

// LastChangeTime returns when the weight of the next attempt was last changed.
func (l *Lifter) LastChangeTime() *time.Time {
	idx := l.AttemptsDone()
	if idx >= TotalAttempts {
		return nil
	}
	return l.Attempts[idx].ChangedAt
}

// LastLiftTime returns the time of the most recent recorded lift.
func (l *Lifter) LastLiftTime() *time.Time {
	var last *time.Time
	for i := range l.Attempts {
		t := l.Attempts[i].LiftedAt
		if t != nil && (last == nil || t.After(*last)) {
			last = t
		}
	}
	return last
}

// BestSnatch returns the heaviest good snatch.
func (l *Lifter) BestSnatch() int {
	return l.best(0, AttemptsPerLift)
}

// BestCleanJerk returns the heaviest good clean & jerk.
func (l *Lifter) BestCleanJerk() int {
	return l.best(AttemptsPerLift, TotalAttempts)
}

func (l *Lifter) best(from, to int) int {
	b := 0
	for i := from; i < to; i++ {
		if w := l.Attempts[i].Best(); w > b {
			b = w
		}
	}
	return b
}

// Total is best snatch plus best clean & jerk, zero when either is missing.
func (l *Lifter) Total() int {
	sn, cj := l.BestSnatch(), l.BestCleanJerk()
	if sn == 0 || cj == 0 {
		return 0
	}
	return sn + cj
}

// Declare sets the declaration for the next attempt.
func (l *Lifter) Declare(weight int, at time.Time) error {
	idx, err := l.nextIndex()
	if err != nil {
		return err
	}
	a := &l.Attempts[idx]
	if a.Declaration > 0 {
		return ErrAlreadyDeclared
	}
	if err := l.validateWeight(idx, weight); err != nil {
		return err
	}
	a.Declaration = weight
	a.ChangedAt = &at
	l.UpdatedAt = at
	return nil
}

// ChangeWeight records a weight change for the next attempt. Without a prior
// declaration the change counts as the declaration.
func (l *Lifter) ChangeWeight(weight int, at time.Time) error {
	idx, err := l.nextIndex()
	if err != nil {
		return err
	}
	a := &l.Attempts[idx]
	if err := l.validateWeight(idx, weight); err != nil {
		return err
	}
	switch {
	case a.Declaration == 0:
		a.Declaration = weight
	case a.Change1 == 0:
		a.Change1 = weight
	case a.Change2 == 0:
		a.Change2 = weight
	default:
		return ErrTooManyChanges
	}
	a.ChangedAt = &at
	l.UpdatedAt = at
	return nil
}

// RecordLift stores the outcome of the next attempt at the requested weight.
func (l *Lifter) RecordLift(good bool, at time.Time) error {
	weight, ok := l.NextAttemptWeight()
	if !ok {
		if l.Withdrawn {
			return ErrWithdrawn
		}
		return ErrNoAttemptLeft
	}
	a := &l.Attempts[l.AttemptsDone()]
	a.Weight = weight
	a.Result = AttemptFailed
	if good {
		a.Result = AttemptGood
	}
	a.LiftedAt = &at
	l.UpdatedAt = at
	return nil
}

func (l *Lifter) nextIndex() (int, error) {
	if l.Withdrawn {
		return 0, ErrWithdrawn
	}
	idx := l.AttemptsDone()
	if idx >= TotalAttempts {
		return 0, ErrNoAttemptLeft
	}
	return idx, nil
}

func (l *Lifter) validateWeight(idx, weight int) error {
	if weight <= 0 {
		return fmt.Errorf("%w: %d kg", ErrInvalidWeight, weight)
	}
	if minimum := l.automaticProgression(idx); weight < minimum {
		return fmt.Errorf("%w: %d kg is below the automatic progression of %d kg", ErrInvalidWeight, weight, minimum)
	}
	return nil
}
