package decision

import (
	"fmt"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
)

// Decision is one referee's input for the attempt being judged
type Decision string

const (
	Pending  Decision = "PENDING"
	Accepted Decision = "ACCEPTED"
	Rejected Decision = "REJECTED"
)

// Phase is the broadcast state of the aggregator
type Phase string

const (
	PhaseIdle            Phase = "IDLE"
	PhaseWaiting         Phase = "WAITING_FOR_DECISIONS"
	PhaseDownSignaled    Phase = "DOWN_SIGNALED"
	PhaseMajorityReached Phase = "MAJORITY_REACHED"
)

// DefaultPanelSize is the number of referees on the platform.
const DefaultPanelSize = 3

// OutOfRangeError is returned for a referee index outside the panel.
type OutOfRangeError struct {
	Index     int
	PanelSize int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("referee index %d out of range [0, %d)", e.Index, e.PanelSize)
}

// Aggregator turns referee inputs into one outcome.
//
// Not safe for concurrent use; the session lock guards it. Methods return the
// events to publish instead of publishing them.
type Aggregator struct {
	decisions []Decision
	phase     Phase
}

// New creates an aggregator for a panel of n referees.
func New(n int) *Aggregator {
	if n <= 0 {
		n = DefaultPanelSize
	}
	a := &Aggregator{decisions: make([]Decision, n), phase: PhaseIdle}
	for i := range a.decisions {
		a.decisions[i] = Pending
	}
	return a
}

// PanelSize returns N.
func (a *Aggregator) PanelSize() int { return len(a.decisions) }

// Phase returns the current phase.
func (a *Aggregator) Phase() Phase { return a.phase }

// Decisions returns a copy of the decision set.
func (a *Aggregator) Decisions() []Decision {
	return append([]Decision(nil), a.decisions...)
}

// RecordDecision stores a referee input, overwriting any earlier one.
func (a *Aggregator) RecordDecision(referee int, accepted bool) ([]events.Event, error) {
	if referee < 0 || referee >= len(a.decisions) {
		return nil, &OutOfRangeError{Index: referee, PanelSize: len(a.decisions)}
	}

	d := Rejected
	if accepted {
		d = Accepted
	}
	a.decisions[referee] = d

	if a.phase == PhaseIdle {
		a.phase = PhaseWaiting
	}

	hasMajority, _ := a.Majority()
	switch a.phase {
	case PhaseWaiting:
		if a.filled() < a.downThreshold() {
			return []events.Event{a.event(events.KindDecisionRequired, referee)}, nil
		}
		a.phase = PhaseDownSignaled
		evts := []events.Event{a.event(events.KindDecisionDown, referee)}
		if hasMajority {
			a.phase = PhaseMajorityReached
			evts = append(evts, a.event(events.KindDecisionShown, referee))
		}
		return evts, nil

	case PhaseDownSignaled:
		if hasMajority {
			a.phase = PhaseMajorityReached
			return []events.Event{a.event(events.KindDecisionShown, referee)}, nil
		}
		return []events.Event{a.event(events.KindDecisionUpdated, referee)}, nil

	default:
		// a change of mind may break the majority
		if !hasMajority {
			a.phase = PhaseDownSignaled
		}
		return []events.Event{a.event(events.KindDecisionUpdated, referee)}, nil
	}
}

// Reset clears every slot and waits for the next attempt's decisions.
func (a *Aggregator) Reset() []events.Event {
	for i := range a.decisions {
		a.decisions[i] = Pending
	}
	a.phase = PhaseWaiting
	return []events.Event{a.event(events.KindDecisionsReset, -1)}
}

// Majority reports whether one polarity holds more than half of the panel.
// On an even panel with every slot filled and a tie, the lift is not given.
func (a *Aggregator) Majority() (hasMajority bool, accepted bool) {
	n := len(a.decisions)
	yes, no := a.count()
	switch {
	case 2*yes > n:
		return true, true
	case 2*no > n:
		return true, false
	case yes+no == n && yes == no:
		return true, false
	default:
		return false, false
	}
}

// Payload returns the decision set as an event payload.
func (a *Aggregator) Payload(referee int) events.DecisionPayload {
	hasMajority, accepted := a.Majority()
	ds := make([]string, len(a.decisions))
	for i, d := range a.decisions {
		ds[i] = string(d)
	}
	return events.DecisionPayload{
		Phase:       string(a.phase),
		Decisions:   ds,
		HasMajority: hasMajority,
		Accepted:    accepted,
		Referee:     referee,
	}
}

func (a *Aggregator) event(kind events.Kind, referee int) events.Event {
	return events.New(kind, a.Payload(referee))
}

// downThreshold is the number of inputs that signals "down": the second of
// three, or N/2+1 in general.
func (a *Aggregator) downThreshold() int {
	return len(a.decisions)/2 + 1
}

func (a *Aggregator) filled() int {
	yes, no := a.count()
	return yes + no
}

func (a *Aggregator) count() (yes, no int) {
	for _, d := range a.decisions {
		switch d {
		case Accepted:
			yes++
		case Rejected:
			no++
		}
	}
	return yes, no
}
