package session

import (
	"fmt"

	"github.com/mcdev12/liftcontrol/go/internal/models"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/platform/order"
)

// ResultEntry is one line of the scoreboard
type ResultEntry struct {
	events.LifterSummary
	BodyWeight    float64      `json:"body_weight"`
	BestSnatch    int          `json:"best_snatch"`
	BestCleanJerk int          `json:"best_clean_jerk"`
	Total         int          `json:"total"`
	Rank          int          `json:"rank"`
	Medal         models.Medal `json:"medal,omitempty"`
	Withdrawn     bool         `json:"withdrawn"`
}

// Snapshot is the full state of a platform, sent to boards when they connect
type Snapshot struct {
	Platform      string                 `json:"platform"`
	Group         string                 `json:"group"`
	Current       *events.LifterSummary  `json:"current,omitempty"`
	Next          *events.LifterSummary  `json:"next,omitempty"`
	Previous      *events.LifterSummary  `json:"previous,omitempty"`
	TimeAllowedMs int64                  `json:"time_allowed_ms"`
	Clock         events.ClockPayload    `json:"clock"`
	Decisions     events.DecisionPayload `json:"decisions"`
	Calls         []Call                 `json:"calls"`
	AttemptOrder  []events.LifterSummary `json:"attempt_order"`
	DisplayOrder  []events.LifterSummary `json:"display_order"`
	ResultOrder   []ResultEntry          `json:"result_order"`
}

// Snapshot returns a consistent copy of the platform state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Platform:     s.cfg.Platform,
		Group:        s.group.Name,
		Clock:        s.clock.Payload(),
		Decisions:    s.decisions.Payload(-1),
		Calls:        s.calls.Calls(),
		AttemptOrder: summaries(s.attemptOrder),
		DisplayOrder: summaries(s.displayOrder),
		ResultOrder:  make([]ResultEntry, 0, len(s.resultOrder)),
	}
	if cur := order.Current(s.attemptOrder); cur != nil {
		sum := summarize(cur)
		snap.Current = &sum
		snap.TimeAllowedMs = s.timeAllowed(cur).Milliseconds()
	}
	if next := order.Next(s.attemptOrder); next != nil {
		sum := summarize(next)
		snap.Next = &sum
	}
	if prev := s.previous(); prev != nil {
		sum := summarize(prev)
		snap.Previous = &sum
	}
	for _, l := range s.resultOrder {
		snap.ResultOrder = append(snap.ResultOrder, ResultEntry{
			LifterSummary: summarize(l),
			BodyWeight:    l.BodyWeight,
			BestSnatch:    l.BestSnatch(),
			BestCleanJerk: l.BestCleanJerk(),
			Total:         l.Total(),
			Rank:          l.ResultRank,
			Medal:         l.Medal,
			Withdrawn:     l.Withdrawn,
		})
	}
	return snap
}

// Group returns a deep copy of the current group.
func (s *Session) Group() *models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := &models.Group{Name: s.group.Name, Lifters: make([]*models.Lifter, len(s.group.Lifters))}
	for i, l := range s.group.Lifters {
		cp := *l
		g.Lifters[i] = &cp
	}
	return g
}

func summaries(ls []*models.Lifter) []events.LifterSummary {
	out := make([]events.LifterSummary, len(ls))
	for i, l := range ls {
		out[i] = summarize(l)
	}
	return out
}

// boardLines renders the short strings shown on a remote display.
func boardLines(p events.OrderChangedPayload) []string {
	if p.Current == nil {
		return []string{p.Group, "", ""}
	}
	c := p.Current
	lines := []string{
		c.Name,
		fmt.Sprintf("%s #%d  %d kg", c.Lift, c.AttemptNumber, c.Weight),
		fmt.Sprintf("%d:%02d", p.TimeAllowedMs/60000, (p.TimeAllowedMs/1000)%60),
	}
	if c.Team != "" {
		lines[0] = fmt.Sprintf("%s (%s)", c.Name, c.Team)
	}
	return lines
}
