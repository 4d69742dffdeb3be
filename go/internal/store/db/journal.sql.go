package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

type PlatformEventJournal struct {
	ID         uuid.UUID
	Platform   string
	Kind       string
	OccurredAt time.Time
	Decisions  []string
	Payload    pqtype.NullRawMessage
	RecordedAt time.Time
}

const insertJournalEntry = `
INSERT INTO platform_event_journal (id, platform, kind, occurred_at, decisions, payload)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`

type InsertJournalEntryParams struct {
	ID         uuid.UUID
	Platform   string
	Kind       string
	OccurredAt time.Time
	Decisions  []string
	Payload    pqtype.NullRawMessage
}

func (q *Queries) InsertJournalEntry(ctx context.Context, arg InsertJournalEntryParams) error {
	_, err := q.db.ExecContext(ctx, insertJournalEntry,
		arg.ID,
		arg.Platform,
		arg.Kind,
		arg.OccurredAt,
		pq.Array(arg.Decisions),
		arg.Payload,
	)
	return err
}

const listJournalByPlatform = `
SELECT id, platform, kind, occurred_at, decisions, payload, recorded_at
FROM platform_event_journal
WHERE platform = $1
ORDER BY occurred_at DESC
LIMIT $2
`

type ListJournalByPlatformParams struct {
	Platform string
	Limit    int32
}

func (q *Queries) ListJournalByPlatform(ctx context.Context, arg ListJournalByPlatformParams) ([]PlatformEventJournal, error) {
	rows, err := q.db.QueryContext(ctx, listJournalByPlatform, arg.Platform, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlatformEventJournal
	for rows.Next() {
		var i PlatformEventJournal
		if err := rows.Scan(
			&i.ID,
			&i.Platform,
			&i.Kind,
			&i.OccurredAt,
			pq.Array(&i.Decisions),
			&i.Payload,
			&i.RecordedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
