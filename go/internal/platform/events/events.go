package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an event published by a platform.
type Kind string

const (
	KindDecisionRequired Kind = "DecisionRequired"
	KindDecisionDown     Kind = "DecisionDown"
	KindDecisionUpdated  Kind = "DecisionUpdated"
	KindDecisionShown    Kind = "DecisionShown"
	KindDecisionsReset   Kind = "DecisionsReset"

	KindClockStarted Kind = "ClockStarted"
	KindClockPaused  Kind = "ClockPaused"
	KindClockTick    Kind = "ClockTick"
	KindClockSet     Kind = "ClockSet"
	KindClockForced  Kind = "ClockForced"

	KindOrderChanged Kind = "OrderChanged"

	// KindAll subscribes to every kind.
	KindAll Kind = "*"
)

// Kinds lists every concrete event kind.
var Kinds = []Kind{
	KindDecisionRequired, KindDecisionDown, KindDecisionUpdated, KindDecisionShown, KindDecisionsReset,
	KindClockStarted, KindClockPaused, KindClockTick, KindClockSet, KindClockForced,
	KindOrderChanged,
}

// Payload is implemented by the event payload structs below.
type Payload interface {
	payload()
}

// Event is the envelope delivered to observers
type Event struct {
	ID        uuid.UUID `json:"id"`
	Platform  string    `json:"platform"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// New creates an unstamped event; the session stamps id, platform and time before publishing.
func New(kind Kind, payload Payload) Event {
	return Event{Kind: kind, Payload: payload}
}

// Stamp fills the envelope fields.
func (e Event) Stamp(platform string, at time.Time) Event {
	e.ID = uuid.New()
	e.Platform = platform
	e.Timestamp = at
	return e
}

// DecisionPayload carries a snapshot of the referee decision set
type DecisionPayload struct {
	Phase       string   `json:"phase"`
	Decisions   []string `json:"decisions"`
	HasMajority bool     `json:"has_majority"`
	Accepted    bool     `json:"accepted"`
	Referee     int      `json:"referee"` // slot that caused the event, -1 for resets
}

// ClockPayload carries the attempt clock state
type ClockPayload struct {
	State       string    `json:"state"`
	RemainingMs int64     `json:"remaining_ms"`
	Signal      string    `json:"signal,omitempty"`
	Cause       string    `json:"cause,omitempty"`
	Owner       uuid.UUID `json:"owner"`
	Generation  uint64    `json:"generation"`
}

// LifterSummary is what boards need to display a lifter
type LifterSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Team          string    `json:"team,omitempty"`
	LotNumber     int       `json:"lot_number"`
	Lift          string    `json:"lift"`
	AttemptNumber int       `json:"attempt_number"`
	Weight        int       `json:"weight"`
	AttemptsDone  int       `json:"attempts_done"`
}

// OrderChangedPayload is published after every recomputation of the lifting order
type OrderChangedPayload struct {
	Group         string          `json:"group"`
	Current       *LifterSummary  `json:"current,omitempty"`
	Next          *LifterSummary  `json:"next,omitempty"`
	Previous      *LifterSummary  `json:"previous,omitempty"`
	TimeAllowedMs int64           `json:"time_allowed_ms"`
	AttemptOrder  []LifterSummary `json:"attempt_order"`
}

func (DecisionPayload) payload()     {}
func (ClockPayload) payload()        {}
func (OrderChangedPayload) payload() {}

// RawEvent is the wire form of an Event whose payload has not been decoded yet
type RawEvent struct {
	ID        uuid.UUID       `json:"id"`
	Platform  string          `json:"platform"`
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode converts a raw event into an Event with a typed payload.
func (r RawEvent) Decode() (Event, error) {
	p, err := ParsePayload(r.Kind, r.Payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: r.ID, Platform: r.Platform, Kind: r.Kind, Timestamp: r.Timestamp, Payload: p}, nil
}

// ParsePayload parses event data into the payload struct for kind
func ParsePayload(kind Kind, data json.RawMessage) (Payload, error) {
	switch kind {
	case KindDecisionRequired, KindDecisionDown, KindDecisionUpdated, KindDecisionShown, KindDecisionsReset:
		var p DecisionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
		}
		return p, nil

	case KindClockStarted, KindClockPaused, KindClockTick, KindClockSet, KindClockForced:
		var p ClockPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
		}
		return p, nil

	case KindOrderChanged:
		var p OrderChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}
}
