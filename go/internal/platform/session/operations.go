package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/liftcontrol/go/internal/models"
	"github.com/mcdev12/liftcontrol/go/internal/platform/clock"
	"github.com/mcdev12/liftcontrol/go/internal/platform/order"
	"github.com/rs/zerolog/log"
)

// SetGroup makes g the current group of the platform. The clock, the
// decisions and the call record start over.
func (s *Session) SetGroup(g *models.Group) error {
	if g == nil {
		g = &models.Group{}
	}
	return s.apply(func(b *batch) error {
		s.group = g
		s.calls.Clear()
		s.forcedTime = false
		b.add(s.clock.Reset()...)
		b.add(s.decisions.Reset()...)
		s.recompute(b)

		log.Info().
			Str("platform", s.cfg.Platform).
			Str("group", g.Name).
			Int("lifters", len(g.Lifters)).
			Msg("group loaded")
		return nil
	})
}

// RecordDecision stores a referee input. The first input stops a running clock.
func (s *Session) RecordDecision(referee int, accepted bool) error {
	return s.apply(func(b *batch) error {
		evts, err := s.decisions.RecordDecision(referee, accepted)
		if err != nil {
			return err
		}
		if s.clock.State() == clock.StateRunning {
			b.add(s.clock.Pause(clock.CauseDecision)...)
		}
		b.add(evts...)
		return nil
	})
}

// ResetDecisions clears the decision set.
func (s *Session) ResetDecisions() error {
	return s.apply(func(b *batch) error {
		b.add(s.decisions.Reset()...)
		return nil
	})
}

// StartClock starts the countdown and records the owner as called.
func (s *Session) StartClock() error {
	return s.apply(func(b *batch) error {
		evts := s.clock.Start()
		if len(evts) > 0 && s.clock.Owner() != uuid.Nil {
			s.calls.Record(s.clock.Owner(), s.clk.Now())
		}
		b.add(evts...)
		return nil
	})
}

// StopClock pauses the countdown.
func (s *Session) StopClock() error {
	return s.apply(func(b *batch) error {
		b.add(s.clock.Pause(clock.CauseStopButton)...)
		return nil
	})
}

// SetClockTime corrects the time left; a running clock keeps running.
func (s *Session) SetClockTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	return s.apply(func(b *batch) error {
		b.add(s.clock.SetRemaining(d)...)
		return nil
	})
}

// ForceTime stops the clock at d and keeps d for the next call.
func (s *Session) ForceTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	return s.apply(func(b *batch) error {
		b.add(s.clock.ForceRemaining(d, clock.CauseTimekeeper)...)
		s.forcedTime = true
		return nil
	})
}

// CallLifter calls the current lifter: decisions are cleared, time is
// allotted and the lifter is recorded as called. It returns nil when nobody
// can be called.
func (s *Session) CallLifter() (*models.Lifter, error) {
	var called *models.Lifter
	err := s.apply(func(b *batch) error {
		cur := order.Current(s.attemptOrder)
		if cur == nil {
			log.Info().Str("platform", s.cfg.Platform).Msg("no lifter to call")
			return nil
		}

		b.add(s.decisions.Reset()...)

		resuming := s.clock.Owner() == cur.ID && s.clock.OwnerStarted()
		switch {
		case s.forcedTime:
			s.forcedTime = false
		case resuming:
			// time already belongs to this lifter
		default:
			b.add(s.clock.SetRemaining(s.timeAllowed(cur))...)
		}
		s.clock.SetOwner(cur.ID)
		s.calls.Record(cur.ID, s.clk.Now())

		if s.cfg.AutoStartClock {
			b.add(s.clock.Start()...)
		}

		log.Info().
			Str("platform", s.cfg.Platform).
			Str("lifter_id", cur.ID.String()).
			Str("lifter", cur.FullName()).
			Dur("time_allowed", s.clock.Remaining()).
			Msg("lifter called")

		cp := *cur
		called = &cp
		return nil
	})
	return called, err
}

// LiftDone records the outcome of the lifter's attempt and recomputes the order.
func (s *Session) LiftDone(id uuid.UUID, success bool) error {
	return s.apply(func(b *batch) error {
		l, err := s.lookup(id)
		if err != nil {
			return err
		}
		if err := l.RecordLift(success, s.clk.Now()); err != nil {
			return fmt.Errorf("failed to record lift for %s: %w", l.FullName(), err)
		}
		l.ForcedAsCurrent = false
		s.calls.Clear()
		s.forcedTime = false
		b.add(s.clock.Reset()...)
		s.recompute(b)
		b.save(l)

		log.Info().
			Str("platform", s.cfg.Platform).
			Str("lifter_id", l.ID.String()).
			Bool("good", success).
			Int("attempts_done", l.AttemptsDone()).
			Msg("lift recorded")
		return nil
	})
}

// Declare sets the declared weight of the lifter's next attempt.
func (s *Session) Declare(id uuid.UUID, weight int) error {
	return s.mutateLifter(id, func(l *models.Lifter) error {
		return l.Declare(weight, s.clk.Now())
	})
}

// ChangeWeight changes the requested weight of the lifter's next attempt.
func (s *Session) ChangeWeight(id uuid.UUID, weight int) error {
	return s.mutateLifter(id, func(l *models.Lifter) error {
		return l.ChangeWeight(weight, s.clk.Now())
	})
}

// Withdraw removes a lifter from the attempt order.
func (s *Session) Withdraw(id uuid.UUID) error {
	return s.apply(func(b *batch) error {
		l, err := s.lookup(id)
		if err != nil {
			return err
		}
		l.Withdrawn = true
		l.ForcedAsCurrent = false
		l.UpdatedAt = s.clk.Now()
		if s.clock.Owner() == id && s.clock.State() == clock.StateRunning {
			b.add(s.clock.Pause(clock.CauseWithdrawal)...)
		}
		s.recompute(b)
		b.save(l)
		return nil
	})
}

// ForceAsCurrent puts the lifter at the head of the attempt order. A clock
// running for someone else is stopped.
func (s *Session) ForceAsCurrent(id uuid.UUID) error {
	return s.apply(func(b *batch) error {
		l, err := s.lookup(id)
		if err != nil {
			return err
		}
		if !l.Eligible() {
			return fmt.Errorf("%s cannot be called: %w", l.FullName(), models.ErrNoAttemptLeft)
		}
		for _, other := range s.group.Lifters {
			other.ForcedAsCurrent = false
		}
		l.ForcedAsCurrent = true
		if s.clock.State() == clock.StateRunning && s.clock.Owner() != id {
			b.add(s.clock.Pause(clock.CauseForcedAsCurrent)...)
		}
		s.recompute(b)
		return nil
	})
}

// DrawLots assigns lot numbers 1..n from the shuffler's permutation.
func (s *Session) DrawLots(shuffler Shuffler) error {
	return s.apply(func(b *batch) error {
		lifters := s.group.Lifters
		perm := shuffler.Perm(len(lifters))
		if len(perm) != len(lifters) {
			return fmt.Errorf("shuffler returned %d lots for %d lifters", len(perm), len(lifters))
		}
		now := s.clk.Now()
		for i, l := range lifters {
			l.LotNumber = perm[i] + 1
			l.UpdatedAt = now
			b.save(l)
		}
		s.recompute(b)
		return nil
	})
}

// Recompute re-sorts the orders and publishes OrderChanged.
func (s *Session) Recompute() {
	_ = s.apply(func(b *batch) error {
		s.recompute(b)
		return nil
	})
}

func (s *Session) mutateLifter(id uuid.UUID, f func(l *models.Lifter) error) error {
	return s.apply(func(b *batch) error {
		l, err := s.lookup(id)
		if err != nil {
			return err
		}
		if err := f(l); err != nil {
			return fmt.Errorf("%s: %w", l.FullName(), err)
		}
		s.recompute(b)
		b.save(l)
		return nil
	})
}

// TimeAllowed returns the time the lifter would get if called now.
func (s *Session) TimeAllowed(id uuid.UUID) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return s.timeAllowed(l), nil
}

// CurrentLifter returns a copy of the current lifter, or nil.
func (s *Session) CurrentLifter() *models.Lifter {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := order.Current(s.attemptOrder)
	if cur == nil {
		return nil
	}
	cp := *cur
	return &cp
}

// Majority returns the outcome of the current decision set.
func (s *Session) Majority() (hasMajority bool, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decisions.Majority()
}

// Calls returns the call record entries.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls.Calls()
}
