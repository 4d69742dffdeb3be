package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
)

func TestCommandsRunInSubmissionOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig("A"), newLifter("A", 1, 90))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.s.Run(ctx)

	var mu sync.Mutex
	var order []int
	var results []<-chan error
	for i := 0; i < 10; i++ {
		i := i
		res, err := f.s.Submit("append", func(*Session) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		results = append(results, res)
	}
	for _, res := range results {
		if err := <-res; err != nil {
			t.Fatalf("unexpected command error: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected sequential order, got %v", order)
		}
	}
}

func TestDoReturnsCommandError(t *testing.T) {
	f := newFixture(t, DefaultConfig("A"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.s.Run(ctx)

	err := f.s.Do(ctx, "decision", func(s *Session) error { return s.RecordDecision(7, true) })
	if err == nil {
		t.Fatalf("expected out of range error")
	}

	err = f.s.Do(ctx, "panic", func(*Session) error { panic("boom") })
	if err == nil {
		t.Fatalf("expected panic to be reported as an error")
	}

	// the worker survives a panicking command
	if err := f.s.Do(ctx, "noop", func(*Session) error { return nil }); err != nil {
		t.Fatalf("expected worker to keep running, got %v", err)
	}
}

func TestSubmitQueueFullAndClosed(t *testing.T) {
	cfg := DefaultConfig("A")
	cfg.QueueSize = 1
	f := newFixture(t, cfg)

	// no worker running: the second command does not fit
	if _, err := f.s.Submit("first", func(*Session) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.s.Submit("second", func(*Session) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	f.s.Close()
	if _, err := f.s.Submit("late", func(*Session) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestConcurrentRefereesAreLinearized(t *testing.T) {
	f := newFixture(t, DefaultConfig("A"), newLifter("A", 1, 90))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go f.s.Run(ctx)

	var wg sync.WaitGroup
	for round := 0; round < 20; round++ {
		for ref := 0; ref < 3; ref++ {
			wg.Add(1)
			go func(ref int) {
				defer wg.Done()
				// direct calls and queued commands share the same lock
				if ref == 0 {
					_ = f.s.RecordDecision(ref, true)
					return
				}
				_ = f.s.Do(ctx, "decision", func(s *Session) error { return s.RecordDecision(ref, true) })
			}(ref)
		}
	}
	wg.Wait()

	if has, ok := f.s.Majority(); !has || !ok {
		t.Fatalf("expected good lift majority, got (%v, %v)", has, ok)
	}

	// exactly one DecisionShown: later inputs only update
	shown := 0
	for _, k := range f.pub.kinds() {
		if k == events.KindDecisionShown {
			shown++
		}
	}
	if shown != 1 {
		t.Fatalf("expected one DecisionShown, got %d", shown)
	}
}
