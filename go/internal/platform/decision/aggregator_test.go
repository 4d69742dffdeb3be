package decision

import (
	"errors"
	"testing"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
)

func kinds(evts []events.Event) []events.Kind {
	out := make([]events.Kind, len(evts))
	for i, e := range evts {
		out[i] = e.Kind
	}
	return out
}

func expectKinds(t *testing.T, evts []events.Event, want ...events.Kind) {
	t.Helper()
	got := kinds(evts)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func record(t *testing.T, a *Aggregator, referee int, accepted bool) []events.Event {
	t.Helper()
	evts, err := a.RecordDecision(referee, accepted)
	if err != nil {
		t.Fatalf("RecordDecision(%d, %v): %v", referee, accepted, err)
	}
	return evts
}

func TestTwoGoodOfThree(t *testing.T) {
	a := New(3)
	a.Reset()

	evts := record(t, a, 0, true)
	expectKinds(t, evts, events.KindDecisionRequired)
	if a.Phase() != PhaseWaiting {
		t.Fatalf("expected waiting after one input, got %s", a.Phase())
	}

	evts = record(t, a, 1, true)
	expectKinds(t, evts, events.KindDecisionDown, events.KindDecisionShown)
	if a.Phase() != PhaseMajorityReached {
		t.Fatalf("expected majority reached, got %s", a.Phase())
	}
	if has, ok := a.Majority(); !has || !ok {
		t.Fatalf("expected (true, true), got (%v, %v)", has, ok)
	}

	p := evts[1].Payload.(events.DecisionPayload)
	if p.Referee != 1 || !p.HasMajority || !p.Accepted || p.Decisions[2] != string(Pending) {
		t.Fatalf("unexpected snapshot %+v", p)
	}
}

func TestMixedInputsSignalDownBeforeMajority(t *testing.T) {
	a := New(3)
	a.Reset()

	record(t, a, 0, true)
	evts := record(t, a, 2, false)
	expectKinds(t, evts, events.KindDecisionDown)
	if a.Phase() != PhaseDownSignaled {
		t.Fatalf("expected down signaled, got %s", a.Phase())
	}
	if has, _ := a.Majority(); has {
		t.Fatalf("expected no majority with 1-1")
	}

	evts = record(t, a, 1, false)
	expectKinds(t, evts, events.KindDecisionShown)
	if has, ok := a.Majority(); !has || ok {
		t.Fatalf("expected (true, false), got (%v, %v)", has, ok)
	}
}

func TestChangeOfMindAfterMajority(t *testing.T) {
	a := New(3)
	a.Reset()
	record(t, a, 0, true)
	record(t, a, 1, true)

	// third referee joins the majority
	evts := record(t, a, 2, true)
	expectKinds(t, evts, events.KindDecisionUpdated)

	// two referees flip: majority flips too and stays reached
	record(t, a, 0, false)
	evts = record(t, a, 1, false)
	expectKinds(t, evts, events.KindDecisionUpdated)
	if has, ok := a.Majority(); !has || ok {
		t.Fatalf("expected (true, false), got (%v, %v)", has, ok)
	}
	if a.Phase() != PhaseMajorityReached {
		t.Fatalf("expected majority reached, got %s", a.Phase())
	}
}

func TestChangeOfMindLosesMajority(t *testing.T) {
	a := New(3)
	a.Reset()
	record(t, a, 0, true)
	record(t, a, 1, true)

	evts := record(t, a, 1, false)
	expectKinds(t, evts, events.KindDecisionUpdated)
	if a.Phase() != PhaseDownSignaled {
		t.Fatalf("expected down signaled after losing majority, got %s", a.Phase())
	}

	evts = record(t, a, 2, true)
	expectKinds(t, evts, events.KindDecisionShown)
}

func TestOutOfRange(t *testing.T) {
	a := New(3)
	for _, idx := range []int{-1, 3, 10} {
		_, err := a.RecordDecision(idx, true)
		var oor *OutOfRangeError
		if !errors.As(err, &oor) {
			t.Fatalf("index %d: expected OutOfRangeError, got %v", idx, err)
		}
		if oor.Index != idx || oor.PanelSize != 3 {
			t.Fatalf("unexpected error fields %+v", oor)
		}
	}
	for _, d := range a.Decisions() {
		if d != Pending {
			t.Fatalf("expected no slot touched, got %v", a.Decisions())
		}
	}
}

func TestResetFromAnyPhase(t *testing.T) {
	a := New(3)
	if a.Phase() != PhaseIdle {
		t.Fatalf("expected idle before first reset, got %s", a.Phase())
	}
	record(t, a, 0, true)
	record(t, a, 1, false)
	record(t, a, 2, false)

	evts := a.Reset()
	expectKinds(t, evts, events.KindDecisionsReset)
	if a.Phase() != PhaseWaiting {
		t.Fatalf("expected waiting after reset, got %s", a.Phase())
	}
	for _, d := range a.Decisions() {
		if d != Pending {
			t.Fatalf("expected all pending, got %v", a.Decisions())
		}
	}
	if has, _ := a.Majority(); has {
		t.Fatalf("expected no majority after reset")
	}
}

func TestEvenPanelTieIsNoLift(t *testing.T) {
	a := New(4)
	a.Reset()
	record(t, a, 0, true)
	record(t, a, 1, false)
	evts := record(t, a, 2, true)
	expectKinds(t, evts, events.KindDecisionDown)
	if has, _ := a.Majority(); has {
		t.Fatalf("expected no majority with 2-1 of 4")
	}

	evts = record(t, a, 3, false)
	expectKinds(t, evts, events.KindDecisionShown)
	if has, ok := a.Majority(); !has || ok {
		t.Fatalf("expected tie to resolve to (true, false), got (%v, %v)", has, ok)
	}
}

func TestLargerPanelMajority(t *testing.T) {
	a := New(5)
	a.Reset()
	record(t, a, 0, true)
	record(t, a, 1, true)
	evts := record(t, a, 2, true)
	expectKinds(t, evts, events.KindDecisionDown, events.KindDecisionShown)
	if has, ok := a.Majority(); !has || !ok {
		t.Fatalf("expected (true, true), got (%v, %v)", has, ok)
	}
}
