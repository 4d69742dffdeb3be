package hub

import (
	"context"
	"sync"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/rs/zerolog/log"
)

// AsyncObserver queues events for a slow observer and delivers them from its
// own goroutine. When the queue is full the event is dropped.
type AsyncObserver struct {
	name   string
	next   Observer
	queue  chan events.Event
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	closed bool

	dropped uint64
}

// NewAsyncObserver wraps next with a queue of the given size
func NewAsyncObserver(name string, next Observer, size int) *AsyncObserver {
	if size <= 0 {
		size = 256
	}
	return &AsyncObserver{
		name:  name,
		next:  next,
		queue: make(chan events.Event, size),
		done:  make(chan struct{}),
	}
}

// Run delivers queued events until ctx is cancelled or Close is called.
func (a *AsyncObserver) Run(ctx context.Context) {
	defer close(a.done)

	log.Info().Str("observer", a.name).Msg("async observer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("observer", a.name).Msg("async observer shutting down")
			return
		case e, ok := <-a.queue:
			if !ok {
				return
			}
			deliver(subscription{observer: a.next}, e)
		}
	}
}

// OnEvent enqueues e without blocking.
func (a *AsyncObserver) OnEvent(e events.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	select {
	case a.queue <- e:
	default:
		a.dropped++
		log.Warn().
			Str("observer", a.name).
			Str("platform", e.Platform).
			Str("kind", string(e.Kind)).
			Msg("observer queue full, dropping event")
	}
}

// Dropped returns how many events were dropped on overflow.
func (a *AsyncObserver) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close stops accepting events and waits for Run to drain the queue. Run must
// have been started.
func (a *AsyncObserver) Close() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	<-a.done
}
