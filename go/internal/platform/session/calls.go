package session

import (
	"time"

	"github.com/google/uuid"
)

// Call is one entry of the call record.
type Call struct {
	LifterID uuid.UUID `json:"lifter_id"`
	At       time.Time `json:"at"`
}

// CallRecord lists the lifters whose clock was called or started since the
// last recorded lift. A lifter appears at most once.
type CallRecord struct {
	calls []Call
}

// Record adds id unless it is already present.
func (r *CallRecord) Record(id uuid.UUID, at time.Time) {
	if r.Contains(id) {
		return
	}
	r.calls = append(r.calls, Call{LifterID: id, At: at})
}

// Contains reports whether id was called.
func (r *CallRecord) Contains(id uuid.UUID) bool {
	for _, c := range r.calls {
		if c.LifterID == id {
			return true
		}
	}
	return false
}

// OnlyOrEmpty reports whether nobody other than id was called.
func (r *CallRecord) OnlyOrEmpty(id uuid.UUID) bool {
	for _, c := range r.calls {
		if c.LifterID != id {
			return false
		}
	}
	return true
}

// Clear empties the record.
func (r *CallRecord) Clear() {
	r.calls = nil
}

// Calls returns a copy of the entries in call order.
func (r *CallRecord) Calls() []Call {
	return append([]Call(nil), r.calls...)
}

// Len returns the number of entries.
func (r *CallRecord) Len() int {
	return len(r.calls)
}
