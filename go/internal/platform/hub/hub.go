package hub

import (
	"sync"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/rs/zerolog/log"
)

// Observer receives published events.
type Observer interface {
	OnEvent(e events.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e events.Event)

func (f ObserverFunc) OnEvent(e events.Event) { f(e) }

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id       SubscriptionID
	kind     events.Kind
	observer Observer
}

// Hub fans events out to observers. Publish must be called without holding
// any session lock; observers may call back into the session.
type Hub struct {
	mu     sync.RWMutex
	nextID SubscriptionID
	subs   []subscription
}

// New creates an empty hub
func New() *Hub {
	return &Hub{}
}

// Subscribe registers observer for kind. events.KindAll receives every event.
func (h *Hub) Subscribe(kind events.Kind, observer Observer) SubscriptionID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.subs = append(h.subs, subscription{id: h.nextID, kind: kind, observer: observer})

	log.Debug().
		Uint64("subscription_id", uint64(h.nextID)).
		Str("kind", string(kind)).
		Msg("observer subscribed")

	return h.nextID
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id SubscriptionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.subs {
		if s.id == id {
			// copy so that snapshots taken by in-flight publishes stay intact
			subs := make([]subscription, 0, len(h.subs)-1)
			subs = append(subs, h.subs[:i]...)
			h.subs = append(subs, h.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers events in order to every matching observer, synchronously.
// A panicking observer is logged and does not affect the others.
func (h *Hub) Publish(evts ...events.Event) {
	if len(evts) == 0 {
		return
	}

	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, e := range evts {
		for _, s := range subs {
			if s.kind != events.KindAll && s.kind != e.Kind {
				continue
			}
			deliver(s, e)
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func deliver(s subscription, e events.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Uint64("subscription_id", uint64(s.id)).
				Str("platform", e.Platform).
				Str("kind", string(e.Kind)).
				Msg("observer panicked")
		}
	}()
	s.observer.OnEvent(e)
}
