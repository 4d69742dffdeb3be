package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/rs/zerolog/log"
)

// State of the attempt clock
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// Signal qualifies a tick
type Signal string

const (
	SignalNormal         Signal = "Normal"
	SignalInitialWarning Signal = "InitialWarning"
	SignalFinalWarning   Signal = "FinalWarning"
	SignalNoTimeLeft     Signal = "NoTimeLeft"
)

// Cause explains why the clock stopped or was forced
type Cause string

const (
	CauseStopButton      Cause = "StopButton"
	CauseForcedAsCurrent Cause = "ForcedAsCurrent"
	CauseWithdrawal      Cause = "Withdrawal"
	CauseDecision        Cause = "Decision"
	CauseTimeOver        Cause = "TimeOver"
	CauseLiftRecorded    Cause = "LiftRecorded"
	CauseTimekeeper      Cause = "Timekeeper"
)

// Config holds the warning thresholds
type Config struct {
	InitialWarning time.Duration
	FinalWarning   time.Duration
}

// DefaultConfig returns the 90s / 30s warnings used in competition
func DefaultConfig() Config {
	return Config{
		InitialWarning: 90 * time.Second,
		FinalWarning:   30 * time.Second,
	}
}

// EmitFunc receives events produced by the tick driver. It is called with the
// lock held so ticks stay ordered with the events of commands, and must not
// block.
type EmitFunc func(evts []events.Event)

// Clock is the attempt clock of one platform.
//
// It does not lock on its own: every exported method must be called with the
// session lock held, and returns the events to publish once the lock is
// released. The tick driver acquires the same lock on every tick.
type Clock struct {
	lock sync.Locker
	emit EmitFunc
	clk  clockwork.Clock
	cfg  Config

	state        State
	base         time.Duration // remaining when the current run was armed
	armedAt      time.Time
	reported     time.Duration // remaining at the last tick, or base before the first one
	owner        uuid.UUID
	ownerStarted bool
	generation   uint64

	initialFired bool
	finalFired   bool

	stop  chan struct{}
	timer clockwork.Timer
}

// New creates an idle clock. lock is the session lock, emit publishes tick events.
func New(lock sync.Locker, clk clockwork.Clock, cfg Config, emit EmitFunc) *Clock {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Clock{
		lock:  lock,
		emit:  emit,
		clk:   clk,
		cfg:   cfg,
		state: StateIdle,
	}
}

// State returns the current state.
func (c *Clock) State() State { return c.state }

// Generation returns the generation counter.
func (c *Clock) Generation() uint64 { return c.generation }

// Owner returns the lifter the time belongs to, uuid.Nil when none.
func (c *Clock) Owner() uuid.UUID { return c.owner }

// OwnerStarted reports whether the clock has run since the owner was assigned.
func (c *Clock) OwnerStarted() bool { return c.ownerStarted }

// SetOwner assigns the time to a lifter.
func (c *Clock) SetOwner(id uuid.UUID) {
	if c.owner != id {
		c.ownerStarted = false
	}
	c.owner = id
}

// Remaining returns the time left, never negative. While running it is
// computed from the clock, otherwise it is the frozen value.
func (c *Clock) Remaining() time.Duration {
	r := c.base
	if c.state == StateRunning {
		r = c.base - c.clk.Since(c.armedAt)
	}
	if r < 0 {
		return 0
	}
	return r
}

// Start begins or resumes the countdown. No-op when running or when no time is left.
func (c *Clock) Start() []events.Event {
	if c.state == StateRunning || c.base <= 0 {
		return nil
	}
	c.state = StateRunning
	c.ownerStarted = true
	c.reported = c.base
	c.arm()

	log.Debug().
		Str("owner", c.owner.String()).
		Dur("remaining", c.base).
		Uint64("generation", c.generation).
		Msg("clock started")

	return []events.Event{c.event(events.KindClockStarted, "", "")}
}

// Pause stops a running clock, freezing the time at the last reported tick.
func (c *Clock) Pause(cause Cause) []events.Event {
	if c.state != StateRunning {
		return nil
	}
	c.halt()
	c.generation++
	c.base = c.reported
	c.state = StatePaused

	log.Debug().
		Str("cause", string(cause)).
		Dur("remaining", c.base).
		Msg("clock paused")

	return []events.Event{c.event(events.KindClockPaused, "", cause)}
}

// SetRemaining sets the time left. A running clock keeps running from d.
func (c *Clock) SetRemaining(d time.Duration) []events.Event {
	running := c.state == StateRunning
	c.halt()
	c.generation++
	c.base = d
	c.reported = d
	c.initialFired, c.finalFired = false, false
	if running {
		if d > 0 {
			c.arm()
		} else {
			c.state = StatePaused
		}
	}
	return []events.Event{c.event(events.KindClockSet, "", "")}
}

// ForceRemaining sets the time left and stops the clock.
func (c *Clock) ForceRemaining(d time.Duration, cause Cause) []events.Event {
	if c.state == StateRunning {
		c.state = StatePaused
	}
	c.halt()
	c.generation++
	c.base = d
	c.reported = d
	c.initialFired, c.finalFired = false, false
	return []events.Event{c.event(events.KindClockForced, "", cause)}
}

// Reset stops the clock, zeroes the time and clears the owner.
func (c *Clock) Reset() []events.Event {
	var evts []events.Event
	if c.state == StateRunning {
		c.halt()
		c.base = c.reported
		c.state = StatePaused
		evts = append(evts, c.event(events.KindClockPaused, "", CauseLiftRecorded))
	}
	c.halt()
	c.generation++
	c.state = StateIdle
	c.base = 0
	c.reported = 0
	c.owner = uuid.Nil
	c.ownerStarted = false
	c.initialFired, c.finalFired = false, false
	return append(evts, c.event(events.KindClockSet, "", ""))
}

// Close stops the tick driver without emitting anything.
func (c *Clock) Close() {
	c.halt()
	c.generation++
	if c.state == StateRunning {
		c.state = StatePaused
	}
}

// Payload returns the current state as an event payload.
func (c *Clock) Payload() events.ClockPayload {
	return events.ClockPayload{
		State:       string(c.state),
		RemainingMs: c.Remaining().Milliseconds(),
		Owner:       c.owner,
		Generation:  c.generation,
	}
}

func (c *Clock) event(kind events.Kind, signal Signal, cause Cause) events.Event {
	p := c.Payload()
	p.Signal = string(signal)
	p.Cause = string(cause)
	return events.New(kind, p)
}

// arm bumps the generation and starts a driver for the new countdown. The
// timer is created here so it exists as soon as the caller releases the lock.
func (c *Clock) arm() {
	c.halt()
	c.generation++
	c.armedAt = c.clk.Now()
	c.stop = make(chan struct{})
	c.timer = c.clk.NewTimer(nextDelay(c.base))
	go c.drive(c.generation, c.stop, c.timer)
}

// halt stops the running driver, if any. Callers bump the generation so a
// tick already waiting on the lock is dropped.
func (c *Clock) halt() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.timer != nil {
		stopAndDrainTimer(c.timer)
		c.timer = nil
	}
}

// nextDelay aligns ticks on whole seconds of remaining time.
func nextDelay(remaining time.Duration) time.Duration {
	if d := remaining % time.Second; d > 0 {
		return d
	}
	return time.Second
}

func (c *Clock) drive(generation uint64, stop <-chan struct{}, timer clockwork.Timer) {
	for {
		select {
		case <-stop:
			return
		case <-timer.Chan():
		}

		c.lock.Lock()
		if c.generation != generation || c.state != StateRunning {
			c.lock.Unlock()
			log.Debug().Uint64("generation", generation).Msg("dropping stale clock tick")
			return
		}
		evts, next := c.tick()
		if next > 0 {
			timer.Reset(next)
		}
		if c.emit != nil && len(evts) > 0 {
			c.emit(evts)
		}
		c.lock.Unlock()

		if next <= 0 {
			return
		}
	}
}

// tick reports the time left and returns the delay to the next tick, or 0
// when the countdown is over. Called with the lock held.
func (c *Clock) tick() ([]events.Event, time.Duration) {
	left := c.base - c.clk.Since(c.armedAt)
	now := left.Round(time.Second)
	if now < 0 {
		now = 0
	}
	prev := c.reported
	c.reported = now

	signal := SignalNormal
	switch {
	case now <= 0:
		signal = SignalNoTimeLeft
	case !c.finalFired && prev > c.cfg.FinalWarning && now <= c.cfg.FinalWarning:
		signal = SignalFinalWarning
		c.finalFired = true
		c.initialFired = true
	case !c.initialFired && prev > c.cfg.InitialWarning && now <= c.cfg.InitialWarning:
		signal = SignalInitialWarning
		c.initialFired = true
	}

	tick := c.event(events.KindClockTick, signal, "")
	p := tick.Payload.(events.ClockPayload)
	p.RemainingMs = now.Milliseconds()
	tick.Payload = p

	if signal != SignalNoTimeLeft {
		return []events.Event{tick}, nextDelay(left)
	}

	c.stop = nil
	c.timer = nil
	c.generation++
	c.base = 0
	c.state = StatePaused
	log.Info().Str("owner", c.owner.String()).Msg("attempt time over")
	return []events.Event{tick, c.event(events.KindClockPaused, "", CauseTimeOver)}, 0
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
