package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/sqlutil"
	"github.com/mcdev12/liftcontrol/go/internal/store/db"
	"github.com/rs/zerolog/log"
)

// Journal writes every platform event to platform_event_journal so a
// competition can be audited after the fact. Writes are best effort.
type Journal struct {
	sqlDB   *sql.DB
	queries *db.Queries
	timeout time.Duration
}

// NewJournal creates a journal on a lib/pq database handle.
func NewJournal(sqlDB *sql.DB) *Journal {
	return &Journal{
		sqlDB:   sqlDB,
		queries: db.New(sqlDB),
		timeout: 3 * time.Second,
	}
}

// OnEvent appends one hub event. Wrap the journal in an AsyncObserver so
// database latency stays off the publishing path.
func (j *Journal) OnEvent(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.Append(ctx, e); err != nil {
		log.Error().
			Err(err).
			Str("platform", e.Platform).
			Str("kind", string(e.Kind)).
			Msg("failed to journal event")
	}
}

// Append writes events in one transaction. Events already journaled are skipped.
func (j *Journal) Append(ctx context.Context, evts ...events.Event) error {
	params := make([]db.InsertJournalEntryParams, 0, len(evts))
	for _, e := range evts {
		p, err := journalEntry(e)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	return sqlutil.Run(ctx, j.sqlDB, j.queries.WithTx, func(q *db.Queries) error {
		for _, p := range params {
			if err := q.InsertJournalEntry(ctx, p); err != nil {
				return fmt.Errorf("failed to insert journal entry %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// Recent returns the latest events of a platform, newest first.
func (j *Journal) Recent(ctx context.Context, platform string, limit int) ([]events.RawEvent, error) {
	rows, err := j.queries.ListJournalByPlatform(ctx, db.ListJournalByPlatformParams{
		Platform: platform,
		Limit:    int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list journal for %s: %w", platform, err)
	}

	out := make([]events.RawEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, rawEventFromRow(r))
	}
	return out, nil
}

func journalEntry(e events.Event) (db.InsertJournalEntryParams, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return db.InsertJournalEntryParams{}, fmt.Errorf("failed to marshal %s payload: %w", e.Kind, err)
	}

	var decisions []string
	if p, ok := e.Payload.(events.DecisionPayload); ok {
		decisions = sqlutil.ToStringSlice(p.Decisions)
	}

	return db.InsertJournalEntryParams{
		ID:         e.ID,
		Platform:   e.Platform,
		Kind:       string(e.Kind),
		OccurredAt: e.Timestamp,
		Decisions:  decisions,
		Payload:    sqlutil.ToNullRawMessage(payload),
	}, nil
}

func rawEventFromRow(r db.PlatformEventJournal) events.RawEvent {
	return events.RawEvent{
		ID:        r.ID,
		Platform:  r.Platform,
		Kind:      events.Kind(r.Kind),
		Timestamp: r.OccurredAt,
		Payload:   sqlutil.FromNullRawMessage(r.Payload),
	}
}
