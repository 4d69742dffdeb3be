package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
)

// MessageType is the type of a message pushed to websocket clients
type MessageType string

const (
	// MessageTypeEvent carries a platform event
	MessageTypeEvent MessageType = "event"
	// MessageTypeSnapshot carries the full platform state, sent on connect
	MessageTypeSnapshot MessageType = "snapshot"
	// MessageTypeError answers a client command that could not be queued
	MessageTypeError MessageType = "error"
)

// Message is the frame sent to boards and consoles
type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Platform  string          `json:"platform"`
	Kind      events.Kind     `json:"kind,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// MessageFromEvent converts a hub event to a websocket frame
func MessageFromEvent(e events.Event) (*Message, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind, err)
	}
	return &Message{
		ID:        e.ID.String(),
		Type:      MessageTypeEvent,
		Platform:  e.Platform,
		Kind:      e.Kind,
		Timestamp: e.Timestamp,
		Data:      data,
	}, nil
}

// MessageFromRaw converts a replicated event to a websocket frame without
// decoding its payload.
func MessageFromRaw(e events.RawEvent) *Message {
	return &Message{
		ID:        e.ID.String(),
		Type:      MessageTypeEvent,
		Platform:  e.Platform,
		Kind:      e.Kind,
		Timestamp: e.Timestamp,
		Data:      e.Payload,
	}
}

// ClientCommand is a command sent by a console over its websocket
type ClientCommand struct {
	Command   string `json:"command"`
	Referee   int    `json:"referee,omitempty"`
	Accepted  bool   `json:"accepted,omitempty"`
	LifterID  string `json:"lifter_id,omitempty"`
	Weight    int    `json:"weight,omitempty"`
	Success   bool   `json:"success,omitempty"`
	Remaining int64  `json:"remaining_ms,omitempty"`
}
