package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/liftcontrol/go/internal/models"
	"github.com/mcdev12/liftcontrol/go/internal/platform/clock"
	"github.com/mcdev12/liftcontrol/go/internal/platform/decision"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/platform/order"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownLifter is returned when a lifter id is not in the current group
	ErrUnknownLifter = errors.New("unknown lifter")
	// ErrInvalidDuration is returned for negative clock times
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrQueueFull is returned by Submit when the command queue is full
	ErrQueueFull = errors.New("command queue full")
	// ErrClosed is returned by Submit after Close
	ErrClosed = errors.New("session closed")
)

// Publisher delivers events to observers. *hub.Hub implements it.
type Publisher interface {
	Publish(evts ...events.Event)
}

// Saver persists a lifter after a mutation
type Saver interface {
	SaveLifter(ctx context.Context, l *models.Lifter) error
}

// RemoteDisplay drives an external board. Only the master instance of a
// platform writes to it.
type RemoteDisplay interface {
	WriteLifterInfo(ctx context.Context, platform string, info events.OrderChangedPayload) error
	WriteStrings(ctx context.Context, platform string, lines []string) error
}

// Shuffler supplies the permutation used to draw lot numbers. *rand.Rand implements it.
type Shuffler interface {
	Perm(n int) []int
}

// Config holds the per-platform settings
type Config struct {
	Platform       string
	PanelSize      int
	AutoStartClock bool
	OneMinute      time.Duration
	TwoMinutes     time.Duration
	Clock          clock.Config
	Master         bool
	QueueSize      int
	EventQueueSize int
	SaveTimeout    time.Duration
}

// DefaultConfig returns competition defaults for a platform.
func DefaultConfig(platform string) Config {
	return Config{
		Platform:       platform,
		PanelSize:      decision.DefaultPanelSize,
		OneMinute:      60 * time.Second,
		TwoMinutes:     120 * time.Second,
		Clock:          clock.DefaultConfig(),
		QueueSize:      64,
		EventQueueSize: 1024,
		SaveTimeout:    5 * time.Second,
	}
}

// Deps are the collaborators of a session. Only Publisher is required.
type Deps struct {
	Publisher Publisher
	Saver     Saver
	Display   RemoteDisplay
	Clock     clockwork.Clock
}

// Session coordinates the clock, the decision aggregator and the lifting
// order of one platform. A single mutex guards all of them; events are
// collected under the lock and handed to the session's dispatcher, which
// delivers them to observers from its own goroutine.
type Session struct {
	cfg     Config
	pub     Publisher
	saver   Saver
	display RemoteDisplay
	clk     clockwork.Clock

	mu         sync.Mutex
	group      *models.Group
	clock      *clock.Clock
	decisions  *decision.Aggregator
	calls      CallRecord
	forcedTime bool

	attemptOrder  []*models.Lifter
	displayOrder  []*models.Lifter
	resultOrder   []*models.Lifter
	liftTimeOrder []*models.Lifter

	dispatch  *dispatcher
	cmdCh     chan command
	closeOnce sync.Once
	closed    chan struct{}
	saves     sync.WaitGroup
}

// New creates a session with an empty group.
func New(cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 5 * time.Second
	}
	s := &Session{
		cfg:       cfg,
		pub:       deps.Publisher,
		saver:     deps.Saver,
		display:   deps.Display,
		clk:       deps.Clock,
		group:     &models.Group{},
		decisions: decision.New(cfg.PanelSize),
		cmdCh:     make(chan command, cfg.QueueSize),
		closed:    make(chan struct{}),
	}
	s.dispatch = newDispatcher(cfg.Platform, cfg.EventQueueSize, s.deliver)
	s.clock = clock.New(&s.mu, deps.Clock, cfg.Clock, s.publish)
	go s.dispatch.run()
	return s
}

// Platform returns the platform name.
func (s *Session) Platform() string { return s.cfg.Platform }

// Config returns the session configuration.
func (s *Session) Config() Config { return s.cfg }

// batch collects what a mutation produced while the lock is held.
type batch struct {
	evts  []events.Event
	saves []models.Lifter
}

func (b *batch) add(evts ...events.Event) {
	b.evts = append(b.evts, evts...)
}

// save snapshots l so it can be written after the lock is released. A later
// snapshot of the same lifter replaces the earlier one.
func (b *batch) save(l *models.Lifter) {
	for i := range b.saves {
		if b.saves[i].ID == l.ID {
			b.saves[i] = *l
			return
		}
	}
	b.saves = append(b.saves, *l)
}

// apply runs f under the session lock. The events it collected are queued
// for delivery before the lock is released, so ticks and commands reach
// observers in the order they happened. Saves run after the unlock.
func (s *Session) apply(f func(b *batch) error) error {
	var b batch
	s.mu.Lock()
	err := f(&b)
	if err == nil {
		s.publish(b.evts)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	for i := range b.saves {
		s.persist(b.saves[i])
	}
	return nil
}

// publish stamps events and queues them for the dispatcher. Called with the
// lock held; never blocks.
func (s *Session) publish(evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	now := s.clk.Now()
	stamped := make([]events.Event, len(evts))
	for i, e := range evts {
		stamped[i] = e.Stamp(s.cfg.Platform, now)
	}
	s.dispatch.enqueue(stamped)
}

// deliver runs on the dispatcher goroutine.
func (s *Session) deliver(evts []events.Event) {
	if s.pub != nil {
		s.pub.Publish(evts...)
	}
	for _, e := range evts {
		if p, ok := e.Payload.(events.OrderChangedPayload); ok && e.Kind == events.KindOrderChanged {
			s.writeDisplay(p)
		}
	}
}

// Sync waits until every event published so far reached the observers.
func (s *Session) Sync(ctx context.Context) error {
	return s.dispatch.wait(ctx)
}

// persist saves a lifter in the background. Failures are logged only.
func (s *Session) persist(l models.Lifter) {
	if s.saver == nil {
		return
	}
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
		defer cancel()
		if err := s.saver.SaveLifter(ctx, &l); err != nil {
			log.Error().
				Err(err).
				Str("platform", s.cfg.Platform).
				Str("lifter_id", l.ID.String()).
				Msg("failed to save lifter")
		}
	}()
}

func (s *Session) writeDisplay(p events.OrderChangedPayload) {
	if !s.cfg.Master || s.display == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()

	if err := s.display.WriteLifterInfo(ctx, s.cfg.Platform, p); err != nil {
		log.Error().Err(err).Str("platform", s.cfg.Platform).Msg("failed to write lifter info to remote display")
		return
	}
	if err := s.display.WriteStrings(ctx, s.cfg.Platform, boardLines(p)); err != nil {
		log.Error().Err(err).Str("platform", s.cfg.Platform).Msg("failed to write board strings to remote display")
	}
}

// recompute re-sorts every order and adds the OrderChanged event to b.
// Lifters whose rank or medal moved are saved too. Called with the lock held.
func (s *Session) recompute(b *batch) {
	lifters := s.group.Lifters
	type placing struct {
		rank  int
		medal models.Medal
	}
	before := make(map[uuid.UUID]placing, len(lifters))
	for _, l := range lifters {
		before[l.ID] = placing{rank: l.ResultRank, medal: l.Medal}
	}

	s.attemptOrder = order.AttemptOrder(lifters)
	s.displayOrder = order.DisplayOrder(lifters)
	s.resultOrder = order.ResultOrder(lifters)
	s.liftTimeOrder = order.LiftTimeOrder(lifters)

	now := s.clk.Now()
	for _, l := range lifters {
		if p := before[l.ID]; p.rank != l.ResultRank || p.medal != l.Medal {
			l.UpdatedAt = now
			b.save(l)
		}
	}

	p := events.OrderChangedPayload{
		Group:        s.group.Name,
		AttemptOrder: make([]events.LifterSummary, 0, len(s.attemptOrder)),
	}
	for _, l := range s.attemptOrder {
		p.AttemptOrder = append(p.AttemptOrder, summarize(l))
	}
	if cur := order.Current(s.attemptOrder); cur != nil {
		sum := summarize(cur)
		p.Current = &sum
		p.TimeAllowedMs = s.timeAllowed(cur).Milliseconds()
	}
	if next := order.Next(s.attemptOrder); next != nil {
		sum := summarize(next)
		p.Next = &sum
	}
	if prev := s.previous(); prev != nil {
		sum := summarize(prev)
		p.Previous = &sum
	}
	b.add(events.New(events.KindOrderChanged, p))
}

// previous is the lifter who lifted most recently.
func (s *Session) previous() *models.Lifter {
	if len(s.liftTimeOrder) == 0 {
		return nil
	}
	return s.liftTimeOrder[0]
}

// timeAllowed applies the two-minute rule. Called with the lock held.
func (s *Session) timeAllowed(l *models.Lifter) time.Duration {
	if s.clock.Owner() == l.ID && s.clock.OwnerStarted() {
		return s.clock.Remaining()
	}
	if l.AttemptsDone()%models.AttemptsPerLift == 0 {
		return s.cfg.OneMinute
	}
	if s.calls.OnlyOrEmpty(l.ID) && s.previous() == l {
		return s.cfg.TwoMinutes
	}
	return s.cfg.OneMinute
}

// lookup finds a lifter of the current group. Called with the lock held.
func (s *Session) lookup(id uuid.UUID) (*models.Lifter, error) {
	l := s.group.Find(id)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLifter, id)
	}
	return l, nil
}

func summarize(l *models.Lifter) events.LifterSummary {
	w, _ := l.NextAttemptWeight()
	return events.LifterSummary{
		ID:            l.ID,
		Name:          l.FullName(),
		Team:          l.Team,
		LotNumber:     l.LotNumber,
		Lift:          string(l.CurrentLift()),
		AttemptNumber: l.AttemptNumber(),
		Weight:        w,
		AttemptsDone:  l.AttemptsDone(),
	}
}
