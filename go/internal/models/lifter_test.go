package models

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestAutomaticProgression(t *testing.T) {
	l := &Lifter{LastName: "Doe"}
	if _, ok := l.NextAttemptWeight(); ok {
		t.Fatalf("expected no weight before a declaration")
	}

	if err := l.Declare(100, t0); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if w, ok := l.NextAttemptWeight(); !ok || w != 100 {
		t.Fatalf("expected 100, got %d %v", w, ok)
	}

	if err := l.RecordLift(true, t0); err != nil {
		t.Fatalf("RecordLift: %v", err)
	}
	if w, _ := l.NextAttemptWeight(); w != 101 {
		t.Fatalf("expected 101 after a good lift, got %d", w)
	}

	if err := l.RecordLift(false, t0); err != nil {
		t.Fatalf("RecordLift: %v", err)
	}
	if w, _ := l.NextAttemptWeight(); w != 101 {
		t.Fatalf("expected 101 after a miss, got %d", w)
	}

	if err := l.RecordLift(true, t0); err != nil {
		t.Fatalf("RecordLift: %v", err)
	}
	// clean & jerk opener needs its own declaration
	if _, ok := l.NextAttemptWeight(); ok {
		t.Fatalf("expected no weight for the clean & jerk opener")
	}
	if l.CurrentLift() != LiftCleanJerk || l.AttemptNumber() != 1 {
		t.Fatalf("expected clean & jerk attempt 1, got %s %d", l.CurrentLift(), l.AttemptNumber())
	}
	if l.BestSnatch() != 101 {
		t.Fatalf("expected best snatch 101, got %d", l.BestSnatch())
	}
}

func TestWeightChanges(t *testing.T) {
	l := &Lifter{}
	if err := l.ChangeWeight(90, t0); err != nil {
		t.Fatalf("first change counts as declaration: %v", err)
	}
	if err := l.Declare(95, t0); !errors.Is(err, ErrAlreadyDeclared) {
		t.Fatalf("expected ErrAlreadyDeclared, got %v", err)
	}
	later := t0.Add(time.Minute)
	if err := l.ChangeWeight(92, later); err != nil {
		t.Fatalf("change 1: %v", err)
	}
	if err := l.ChangeWeight(94, later); err != nil {
		t.Fatalf("change 2: %v", err)
	}
	if err := l.ChangeWeight(96, later); !errors.Is(err, ErrTooManyChanges) {
		t.Fatalf("expected ErrTooManyChanges, got %v", err)
	}
	a := l.Attempts[0]
	if a.Requested() != 94 || a.Changes() != 2 {
		t.Fatalf("expected 94 after two changes, got %d (%d changes)", a.Requested(), a.Changes())
	}
	if got := l.LastChangeTime(); got == nil || !got.Equal(later) {
		t.Fatalf("expected change time %v, got %v", later, got)
	}
}

func TestWeightBelowProgressionRejected(t *testing.T) {
	l := &Lifter{}
	l.Declare(100, t0)
	l.RecordLift(true, t0)
	if err := l.ChangeWeight(100, t0); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight below 101, got %v", err)
	}
	if err := l.ChangeWeight(0, t0); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight for zero, got %v", err)
	}
}

func TestWithdrawnAndFinished(t *testing.T) {
	l := &Lifter{Withdrawn: true}
	if err := l.Declare(100, t0); !errors.Is(err, ErrWithdrawn) {
		t.Fatalf("expected ErrWithdrawn, got %v", err)
	}
	if err := l.RecordLift(true, t0); !errors.Is(err, ErrWithdrawn) {
		t.Fatalf("expected ErrWithdrawn, got %v", err)
	}

	f := &Lifter{}
	for i := 0; i < TotalAttempts; i++ {
		if err := f.ChangeWeight(100+i, t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if err := f.RecordLift(i != 2, t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if !f.Finished() || f.Eligible() {
		t.Fatalf("expected finished lifter")
	}
	if err := f.RecordLift(true, t0); !errors.Is(err, ErrNoAttemptLeft) {
		t.Fatalf("expected ErrNoAttemptLeft, got %v", err)
	}
	if f.Total() != 101+105 {
		t.Fatalf("expected total 206, got %d", f.Total())
	}
	if got := f.LastLiftTime(); got == nil || !got.Equal(t0.Add(5*time.Minute)) {
		t.Fatalf("expected last lift at the sixth attempt, got %v", got)
	}
}

func TestGroupFind(t *testing.T) {
	var g *Group
	if g.Find(Lifter{}.ID) != nil {
		t.Fatalf("expected nil from a nil group")
	}
	l := &Lifter{LastName: "Doe", FirstName: "Jane"}
	g = &Group{Lifters: []*Lifter{l}}
	if g.Find(l.ID) != l {
		t.Fatalf("expected to find lifter")
	}
	if l.FullName() != "Doe, Jane" {
		t.Fatalf("unexpected full name %q", l.FullName())
	}
}
