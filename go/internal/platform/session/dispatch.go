package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/rs/zerolog/log"
)

// dispatcher delivers the events of one session in the order they were
// queued, from its own goroutine. Neither the tick driver nor the command
// worker ever runs observer code.
type dispatcher struct {
	platform string
	deliver  func(evts []events.Event)

	queue    chan dispatchItem
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	dropped atomic.Uint64
}

// dispatchItem is a batch of events, or a marker closed once everything
// queued before it was delivered.
type dispatchItem struct {
	evts   []events.Event
	marker chan struct{}
}

func newDispatcher(platform string, size int, deliver func(evts []events.Event)) *dispatcher {
	if size <= 0 {
		size = 1024
	}
	return &dispatcher{
		platform: platform,
		deliver:  deliver,
		queue:    make(chan dispatchItem, size),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case it := <-d.queue:
			d.handle(it)
		case <-d.quit:
			// deliver what is already queued, then stop
			for {
				select {
				case it := <-d.queue:
					d.handle(it)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) handle(it dispatchItem) {
	if len(it.evts) > 0 {
		d.deliver(it.evts)
	}
	if it.marker != nil {
		close(it.marker)
	}
}

// enqueue never blocks. When an observer stalls long enough to fill the
// queue, further events are dropped.
func (d *dispatcher) enqueue(evts []events.Event) {
	select {
	case d.queue <- dispatchItem{evts: evts}:
	default:
		total := d.dropped.Add(uint64(len(evts)))
		log.Warn().
			Str("platform", d.platform).
			Str("kind", string(evts[0].Kind)).
			Int("events", len(evts)).
			Uint64("dropped_total", total).
			Msg("event queue full, dropping events")
	}
}

// wait blocks until every event queued before the call was delivered.
func (d *dispatcher) wait(ctx context.Context) error {
	marker := make(chan struct{})
	select {
	case d.queue <- dispatchItem{marker: marker}:
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-marker:
		return nil
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop drains the queue and waits up to timeout for the goroutine to exit.
func (d *dispatcher) stop(timeout time.Duration) {
	d.stopOnce.Do(func() { close(d.quit) })

	select {
	case <-d.done:
	case <-time.After(timeout):
		log.Warn().
			Str("platform", d.platform).
			Dur("timeout", timeout).
			Msg("event dispatcher still blocked by an observer, giving up")
	}
}
