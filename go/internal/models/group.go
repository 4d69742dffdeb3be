package models

import (
	"github.com/google/uuid"
)

// Group is the set of lifters competing together in one session on a platform.
type Group struct {
	Name    string    `json:"name"`
	Lifters []*Lifter `json:"lifters"`
}

// Find returns the lifter with the given id, or nil.
func (g *Group) Find(id uuid.UUID) *Lifter {
	if g == nil {
		return nil
	}
	for _, l := range g.Lifters {
		if l.ID == id {
			return l
		}
	}
	return nil
}
