package order

import (
	"sort"
	"time"

	"github.com/mcdev12/liftcontrol/go/internal/models"
)

// AttemptOrder returns the non-withdrawn lifters in calling order: eligible
// lifters first, then finished lifters by lot number. AttemptRank is written
// back on every lifter, 0 for those not in the order.
func AttemptOrder(lifters []*models.Lifter) []*models.Lifter {
	out := make([]*models.Lifter, 0, len(lifters))
	for _, l := range lifters {
		l.AttemptRank = 0
		if !l.Withdrawn {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessAttempt(out[i], out[j])
	})
	for i, l := range out {
		if l.Eligible() {
			l.AttemptRank = i + 1
		}
	}
	return out
}

// DisplayOrder returns every lifter: eligible ones in attempt order, then
// finished ones, then withdrawn ones.
func DisplayOrder(lifters []*models.Lifter) []*models.Lifter {
	out := append([]*models.Lifter(nil), lifters...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Withdrawn != b.Withdrawn {
			return !a.Withdrawn
		}
		if a.Withdrawn {
			return a.LotNumber < b.LotNumber
		}
		return lessAttempt(a, b)
	})
	return out
}

// ResultOrder ranks lifters by total, then lower body weight, then lot number.
// ResultRank and Medal are written back; lifters without a total get no rank.
func ResultOrder(lifters []*models.Lifter) []*models.Lifter {
	out := append([]*models.Lifter(nil), lifters...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ta, tb := a.Total(), b.Total(); ta != tb {
			return ta > tb
		}
		if a.BodyWeight != b.BodyWeight {
			return a.BodyWeight < b.BodyWeight
		}
		return a.LotNumber < b.LotNumber
	})
	rank := 0
	for _, l := range out {
		l.ResultRank = 0
		l.Medal = models.MedalNone
		if l.Total() == 0 || l.Withdrawn {
			continue
		}
		rank++
		l.ResultRank = rank
		switch rank {
		case 1:
			l.Medal = models.MedalGold
		case 2:
			l.Medal = models.MedalSilver
		case 3:
			l.Medal = models.MedalBronze
		}
	}
	return out
}

// LiftTimeOrder returns lifters that have lifted, most recent lift first.
func LiftTimeOrder(lifters []*models.Lifter) []*models.Lifter {
	out := make([]*models.Lifter, 0, len(lifters))
	for _, l := range lifters {
		if l.LastLiftTime() != nil {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastLiftTime().After(*out[j].LastLiftTime())
	})
	return out
}

// Current returns the head of the attempt order if it can be called, or nil.
func Current(attemptOrder []*models.Lifter) *models.Lifter {
	if len(attemptOrder) == 0 || !attemptOrder[0].Eligible() {
		return nil
	}
	return attemptOrder[0]
}

// Next returns the lifter after the current one, or nil.
func Next(attemptOrder []*models.Lifter) *models.Lifter {
	if len(attemptOrder) < 2 || !attemptOrder[1].Eligible() {
		return nil
	}
	return attemptOrder[1]
}

// lessAttempt is the calling order: forced-as-current first, snatch before
// clean & jerk, lowest weight, fewest attempts, earliest change, lowest lot.
func lessAttempt(a, b *models.Lifter) bool {
	wa, okA := a.NextAttemptWeight()
	wb, okB := b.NextAttemptWeight()
	if okA != okB {
		return okA
	}
	if !okA {
		return a.LotNumber < b.LotNumber
	}
	if a.ForcedAsCurrent != b.ForcedAsCurrent {
		return a.ForcedAsCurrent
	}
	if la, lb := a.CurrentLift(), b.CurrentLift(); la != lb {
		return la == models.LiftSnatch
	}
	if wa != wb {
		return wa < wb
	}
	if da, db := a.AttemptsDone(), b.AttemptsDone(); da != db {
		return da < db
	}
	if ca, cb := a.LastChangeTime(), b.LastChangeTime(); !sameTime(ca, cb) {
		return earlier(ca, cb)
	}
	return a.LotNumber < b.LotNumber
}

// earlier treats a missing change time as the earliest possible one.
func earlier(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
