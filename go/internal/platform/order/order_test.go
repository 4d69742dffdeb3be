package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/liftcontrol/go/internal/models"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func lifter(name string, lot int, bw float64) *models.Lifter {
	return &models.Lifter{ID: uuid.New(), LastName: name, LotNumber: lot, BodyWeight: bw}
}

func declare(t *testing.T, l *models.Lifter, w int, at time.Time) {
	t.Helper()
	if err := l.ChangeWeight(w, at); err != nil {
		t.Fatalf("ChangeWeight(%s, %d): %v", l.LastName, w, err)
	}
}

func lift(t *testing.T, l *models.Lifter, good bool, at time.Time) {
	t.Helper()
	if err := l.RecordLift(good, at); err != nil {
		t.Fatalf("RecordLift(%s): %v", l.LastName, err)
	}
}

func names(ls []*models.Lifter) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.LastName
	}
	return out
}

func expectNames(t *testing.T, got []*models.Lifter, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestAttemptOrderByWeightThenLot(t *testing.T) {
	a := lifter("A", 3, 80)
	b := lifter("B", 1, 80)
	c := lifter("C", 2, 80)
	declare(t, a, 100, t0)
	declare(t, b, 100, t0)
	declare(t, c, 95, t0)

	got := AttemptOrder([]*models.Lifter{a, b, c})
	expectNames(t, got, "C", "B", "A")
	if c.AttemptRank != 1 || b.AttemptRank != 2 || a.AttemptRank != 3 {
		t.Fatalf("unexpected ranks %d %d %d", c.AttemptRank, b.AttemptRank, a.AttemptRank)
	}
}

func TestAttemptOrderFewerAttemptsThenEarlierChange(t *testing.T) {
	a := lifter("A", 1, 80)
	b := lifter("B", 2, 80)
	c := lifter("C", 3, 80)
	declare(t, a, 100, t0)
	lift(t, a, false, t0.Add(time.Minute)) // A stays at 100 for attempt 2
	declare(t, b, 100, t0.Add(2*time.Minute))
	declare(t, c, 100, t0.Add(time.Minute))

	got := AttemptOrder([]*models.Lifter{a, b, c})
	// B and C have taken no attempt; C asked for 100 first
	expectNames(t, got, "C", "B", "A")
}

func TestAttemptOrderSnatchBeforeCleanJerk(t *testing.T) {
	a := lifter("A", 1, 80)
	b := lifter("B", 2, 80)
	for i := 0; i < 3; i++ {
		declare(t, a, 80+i, t0)
		lift(t, a, true, t0)
	}
	declare(t, a, 90, t0) // clean & jerk opener lighter than B's snatch
	declare(t, b, 100, t0)

	got := AttemptOrder([]*models.Lifter{a, b})
	expectNames(t, got, "B", "A")
}

func TestAttemptOrderForcedAsCurrentFirst(t *testing.T) {
	a := lifter("A", 1, 80)
	b := lifter("B", 2, 80)
	declare(t, a, 90, t0)
	declare(t, b, 120, t0)
	b.ForcedAsCurrent = true

	got := AttemptOrder([]*models.Lifter{a, b})
	expectNames(t, got, "B", "A")
}

func TestAttemptOrderExcludesWithdrawnAndPutsFinishedLast(t *testing.T) {
	a := lifter("A", 2, 80)
	b := lifter("B", 1, 80)
	c := lifter("C", 3, 80)
	for i := 0; i < models.TotalAttempts; i++ {
		declare(t, b, 100+i, t0)
		lift(t, b, true, t0)
	}
	declare(t, a, 100, t0)
	declare(t, c, 90, t0)
	c.Withdrawn = true

	got := AttemptOrder([]*models.Lifter{a, b, c})
	expectNames(t, got, "A", "B")
	if b.AttemptRank != 0 || c.AttemptRank != 0 {
		t.Fatalf("expected finished and withdrawn lifters unranked, got %d %d", b.AttemptRank, c.AttemptRank)
	}
	if Current(got) != a {
		t.Fatalf("expected A current")
	}
	if Next(got) != nil {
		t.Fatalf("expected no next lifter")
	}

	display := DisplayOrder([]*models.Lifter{c, b, a})
	expectNames(t, display, "A", "B", "C")
}

func TestCurrentEmpty(t *testing.T) {
	if Current(AttemptOrder(nil)) != nil {
		t.Fatalf("expected no current lifter for an empty group")
	}
	a := lifter("A", 1, 80) // nothing declared
	if Current(AttemptOrder([]*models.Lifter{a})) != nil {
		t.Fatalf("expected no current lifter without a requested weight")
	}
}

func TestResultOrderAndMedals(t *testing.T) {
	type entry struct {
		name   string
		lot    int
		bw     float64
		sn, cj int
	}
	entries := []entry{
		{"A", 1, 80.5, 100, 120},
		{"B", 2, 79.0, 100, 120},
		{"C", 3, 81.0, 110, 130},
		{"D", 4, 80.0, 90, 110},
		{"E", 5, 80.0, 90, 0},
	}
	var ls []*models.Lifter
	for _, e := range entries {
		l := lifter(e.name, e.lot, e.bw)
		declare(t, l, e.sn, t0)
		lift(t, l, true, t0)
		if e.cj > 0 {
			for i := 1; i < models.AttemptsPerLift; i++ {
				declare(t, l, e.sn+i, t0)
				lift(t, l, false, t0)
			}
			declare(t, l, e.cj, t0)
			lift(t, l, true, t0)
		}
		ls = append(ls, l)
	}

	got := ResultOrder(ls)
	expectNames(t, got, "C", "B", "A", "D", "E")
	want := map[string]models.Medal{"C": models.MedalGold, "B": models.MedalSilver, "A": models.MedalBronze}
	for _, l := range got {
		if l.Medal != want[l.LastName] {
			t.Fatalf("%s: expected medal %q, got %q", l.LastName, want[l.LastName], l.Medal)
		}
	}
	if ls[4].ResultRank != 0 {
		t.Fatalf("expected no rank without a total, got %d", ls[4].ResultRank)
	}
	if ls[3].ResultRank != 4 {
		t.Fatalf("expected D ranked 4, got %d", ls[3].ResultRank)
	}
}

func TestLiftTimeOrder(t *testing.T) {
	a := lifter("A", 1, 80)
	b := lifter("B", 2, 80)
	c := lifter("C", 3, 80)
	declare(t, a, 100, t0)
	declare(t, b, 100, t0)
	declare(t, c, 100, t0)
	lift(t, a, true, t0.Add(1*time.Minute))
	lift(t, b, true, t0.Add(3*time.Minute))

	got := LiftTimeOrder([]*models.Lifter{a, b, c})
	expectNames(t, got, "B", "A")
}
