package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
)

type harness struct {
	t   *testing.T
	mu  sync.Mutex
	fc  *clockwork.FakeClock
	c   *Clock
	out chan events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		fc:  clockwork.NewFakeClock(),
		out: make(chan events.Event, 512),
	}
	h.c = New(&h.mu, h.fc, DefaultConfig(), func(evts []events.Event) {
		for _, e := range evts {
			h.out <- e
		}
	})
	t.Cleanup(func() {
		h.mu.Lock()
		h.c.Close()
		h.mu.Unlock()
	})
	return h
}

// do runs f with the session lock held, the way the session does.
func (h *harness) do(f func(c *Clock) []events.Event) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return f(h.c)
}

// advance moves the fake clock once the driver timer is armed.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.fc.BlockUntilContext(ctx, 1); err != nil {
		h.t.Fatalf("driver timer not armed: %v", err)
	}
	h.fc.Advance(d)
}

func (h *harness) next() events.Event {
	h.t.Helper()
	select {
	case e := <-h.out:
		return e
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for clock event")
		return events.Event{}
	}
}

func payload(t *testing.T, e events.Event) events.ClockPayload {
	t.Helper()
	p, ok := e.Payload.(events.ClockPayload)
	if !ok {
		t.Fatalf("expected clock payload, got %T", e.Payload)
	}
	return p
}

func TestStartWithoutTimeIsNoop(t *testing.T) {
	h := newHarness(t)
	evts := h.do(func(c *Clock) []events.Event { return c.Start() })
	if len(evts) != 0 {
		t.Fatalf("expected no events, got %d", len(evts))
	}
	if h.c.State() != StateIdle {
		t.Fatalf("expected idle, got %s", h.c.State())
	}
}

func TestFullCountdownSignals(t *testing.T) {
	h := newHarness(t)
	h.do(func(c *Clock) []events.Event { return c.SetRemaining(2 * time.Minute) })
	evts := h.do(func(c *Clock) []events.Event { return c.Start() })
	if len(evts) != 1 || evts[0].Kind != events.KindClockStarted {
		t.Fatalf("expected ClockStarted, got %v", evts)
	}

	signals := map[int64]string{}
	for i := 0; i < 120; i++ {
		h.advance(time.Second)
		e := h.next()
		if e.Kind != events.KindClockTick {
			t.Fatalf("tick %d: expected ClockTick, got %s", i, e.Kind)
		}
		p := payload(t, e)
		if p.Signal != string(SignalNormal) {
			signals[p.RemainingMs] = p.Signal
		}
	}

	if signals[90000] != string(SignalInitialWarning) {
		t.Fatalf("expected initial warning at 90s, got %v", signals)
	}
	if signals[30000] != string(SignalFinalWarning) {
		t.Fatalf("expected final warning at 30s, got %v", signals)
	}
	if signals[0] != string(SignalNoTimeLeft) {
		t.Fatalf("expected no time left at 0, got %v", signals)
	}
	if len(signals) != 3 {
		t.Fatalf("expected exactly 3 non-normal ticks, got %v", signals)
	}

	e := h.next()
	if e.Kind != events.KindClockPaused || payload(t, e).Cause != string(CauseTimeOver) {
		t.Fatalf("expected ClockPaused(TimeOver), got %s %+v", e.Kind, e.Payload)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.c.State() == StateRunning || h.c.Remaining() != 0 {
		t.Fatalf("expected stopped clock with no time, got %s %v", h.c.State(), h.c.Remaining())
	}
}

func TestPauseFreezesAtLastTick(t *testing.T) {
	h := newHarness(t)
	h.do(func(c *Clock) []events.Event { return c.SetRemaining(time.Minute) })
	h.do(func(c *Clock) []events.Event { return c.Start() })

	h.advance(time.Second)
	if p := payload(t, h.next()); p.RemainingMs != 59000 {
		t.Fatalf("expected 59000ms, got %d", p.RemainingMs)
	}

	h.fc.Advance(500 * time.Millisecond)
	evts := h.do(func(c *Clock) []events.Event { return c.Pause(CauseStopButton) })
	if len(evts) != 1 || evts[0].Kind != events.KindClockPaused {
		t.Fatalf("expected ClockPaused, got %v", evts)
	}
	if p := payload(t, evts[0]); p.RemainingMs != 59000 || p.Cause != string(CauseStopButton) {
		t.Fatalf("expected frozen 59000ms by StopButton, got %+v", p)
	}

	// pausing twice is a no-op
	if evts := h.do(func(c *Clock) []events.Event { return c.Pause(CauseStopButton) }); len(evts) != 0 {
		t.Fatalf("expected no events on second pause, got %d", len(evts))
	}

	h.do(func(c *Clock) []events.Event { return c.Start() })
	h.advance(time.Second)
	if p := payload(t, h.next()); p.RemainingMs != 58000 {
		t.Fatalf("expected 58000ms after resume, got %d", p.RemainingMs)
	}
}

func TestSetRemainingWhileRunningRestartsCountdown(t *testing.T) {
	h := newHarness(t)
	h.do(func(c *Clock) []events.Event { return c.SetRemaining(time.Minute) })
	h.do(func(c *Clock) []events.Event { return c.Start() })

	h.mu.Lock()
	gen := h.c.Generation()
	evts := h.c.SetRemaining(30*time.Second + 500*time.Millisecond)
	h.mu.Unlock()

	if len(evts) != 1 || evts[0].Kind != events.KindClockSet {
		t.Fatalf("expected ClockSet, got %v", evts)
	}
	if h.c.Generation() <= gen {
		t.Fatalf("expected generation to advance past %d", gen)
	}
	if h.c.State() != StateRunning {
		t.Fatalf("expected clock to keep running, got %s", h.c.State())
	}

	h.advance(500 * time.Millisecond)
	p := payload(t, h.next())
	if p.RemainingMs != 30000 || p.Signal != string(SignalFinalWarning) {
		t.Fatalf("expected final warning at 30000ms, got %+v", p)
	}
}

func TestWarningFiresOncePerCountdown(t *testing.T) {
	h := newHarness(t)
	h.do(func(c *Clock) []events.Event { return c.SetRemaining(31 * time.Second) })
	h.do(func(c *Clock) []events.Event { return c.Start() })

	h.advance(time.Second)
	if p := payload(t, h.next()); p.Signal != string(SignalFinalWarning) {
		t.Fatalf("expected final warning, got %+v", p)
	}

	// pause and resume does not re-arm the warning
	h.do(func(c *Clock) []events.Event { return c.Pause(CauseStopButton) })
	h.do(func(c *Clock) []events.Event { return c.Start() })
	h.advance(time.Second)
	if p := payload(t, h.next()); p.Signal != string(SignalNormal) {
		t.Fatalf("expected normal tick after resume, got %+v", p)
	}
}

func TestStaleTickIsDropped(t *testing.T) {
	h := newHarness(t)
	h.do(func(c *Clock) []events.Event { return c.SetRemaining(time.Minute) })
	h.do(func(c *Clock) []events.Event { return c.Start() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}

	// fire the timer while the lock is held, then pause before releasing it
	h.mu.Lock()
	h.fc.Advance(time.Second)
	evts := h.c.Pause(CauseDecision)
	h.mu.Unlock()

	if len(evts) != 1 {
		t.Fatalf("expected one pause event, got %d", len(evts))
	}
	select {
	case e := <-h.out:
		t.Fatalf("expected stale tick to be dropped, got %s", e.Kind)
	case <-time.After(50 * time.Millisecond):
	}
	if got := h.c.Remaining(); got != time.Minute {
		t.Fatalf("expected remaining frozen at 60s, got %v", got)
	}
}

func TestForceRemainingStopsClock(t *testing.T) {
	h := newHarness(t)
	h.do(func(c *Clock) []events.Event { return c.SetRemaining(time.Minute) })
	h.do(func(c *Clock) []events.Event { return c.Start() })

	evts := h.do(func(c *Clock) []events.Event { return c.ForceRemaining(2*time.Minute, CauseTimekeeper) })
	if len(evts) != 1 || evts[0].Kind != events.KindClockForced {
		t.Fatalf("expected ClockForced, got %v", evts)
	}
	if h.c.State() != StatePaused {
		t.Fatalf("expected paused, got %s", h.c.State())
	}
	if h.c.Remaining() != 2*time.Minute {
		t.Fatalf("expected 2m, got %v", h.c.Remaining())
	}
}

func TestResetClearsOwner(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	h.mu.Lock()
	h.c.SetOwner(owner)
	h.c.SetRemaining(time.Minute)
	h.c.Start()
	if !h.c.OwnerStarted() {
		t.Fatalf("expected owner started after Start")
	}
	evts := h.c.Reset()
	h.mu.Unlock()

	if len(evts) != 2 || evts[0].Kind != events.KindClockPaused || evts[1].Kind != events.KindClockSet {
		t.Fatalf("expected ClockPaused then ClockSet, got %v", evts)
	}
	if payload(t, evts[0]).Cause != string(CauseLiftRecorded) {
		t.Fatalf("expected LiftRecorded cause, got %+v", evts[0].Payload)
	}
	if h.c.Owner() != uuid.Nil || h.c.OwnerStarted() {
		t.Fatalf("expected owner cleared")
	}
	if h.c.State() != StateIdle || h.c.Remaining() != 0 {
		t.Fatalf("expected idle with no time, got %s %v", h.c.State(), h.c.Remaining())
	}
}

func TestSetOwnerResetsStarted(t *testing.T) {
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	h.mu.Lock()
	defer h.mu.Unlock()

	h.c.SetOwner(a)
	h.c.SetRemaining(time.Minute)
	h.c.Start()
	h.c.Pause(CauseStopButton)
	h.c.SetOwner(a)
	if !h.c.OwnerStarted() {
		t.Fatalf("expected same owner to keep started flag")
	}
	h.c.SetOwner(b)
	if h.c.OwnerStarted() {
		t.Fatalf("expected new owner to clear started flag")
	}
}

func TestNextDelay(t *testing.T) {
	cases := []struct {
		in, want time.Duration
	}{
		{120 * time.Second, time.Second},
		{89500 * time.Millisecond, 500 * time.Millisecond},
		{1 * time.Millisecond, 1 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := nextDelay(tc.in); got != tc.want {
			t.Fatalf("nextDelay(%v): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}
