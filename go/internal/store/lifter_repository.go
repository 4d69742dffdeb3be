package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/liftcontrol/go/internal/models"
)

// PgxQuerier is satisfied by *pgxpool.Pool and pgx.Tx
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LifterRepository persists lifters and loads competition groups.
type LifterRepository struct {
	pool PgxQuerier
}

// NewLifterRepository creates a repository on a pgx pool
func NewLifterRepository(pool PgxQuerier) *LifterRepository {
	return &LifterRepository{pool: pool}
}

const upsertLifter = `
INSERT INTO lifters (
  id, group_name, first_name, last_name, team, lot_number,
  body_weight, attempts, withdrawn, result_rank, medal, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (id) DO UPDATE SET
  group_name  = EXCLUDED.group_name,
  first_name  = EXCLUDED.first_name,
  last_name   = EXCLUDED.last_name,
  team        = EXCLUDED.team,
  lot_number  = EXCLUDED.lot_number,
  body_weight = EXCLUDED.body_weight,
  attempts    = EXCLUDED.attempts,
  withdrawn   = EXCLUDED.withdrawn,
  result_rank = EXCLUDED.result_rank,
  medal       = EXCLUDED.medal,
  updated_at  = EXCLUDED.updated_at
WHERE lifters.updated_at <= EXCLUDED.updated_at
`

// SaveLifter upserts a lifter. A write older than the stored row is ignored,
// so out-of-order asynchronous saves cannot roll a lifter back.
func (r *LifterRepository) SaveLifter(ctx context.Context, l *models.Lifter) error {
	attempts, err := json.Marshal(l.Attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}

	updatedAt := l.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = r.pool.Exec(ctx, upsertLifter,
		l.ID, l.GroupName, l.FirstName, l.LastName, l.Team, l.LotNumber,
		l.BodyWeight, attempts, l.Withdrawn, l.ResultRank, string(l.Medal), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save lifter %s: %w", l.ID, err)
	}
	return nil
}

const listLiftersByGroup = `
SELECT id, group_name, first_name, last_name, team, lot_number,
       body_weight, attempts, withdrawn, result_rank, medal, updated_at
FROM lifters
WHERE group_name = $1
ORDER BY lot_number, last_name
`

// LoadGroup returns the lifters of a group.
func (r *LifterRepository) LoadGroup(ctx context.Context, name string) (*models.Group, error) {
	rows, err := r.pool.Query(ctx, listLiftersByGroup, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query group %s: %w", name, err)
	}
	defer rows.Close()

	g := &models.Group{Name: name}
	for rows.Next() {
		l, err := scanLifter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lifter: %w", err)
		}
		g.Lifters = append(g.Lifters, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read group %s: %w", name, err)
	}
	return g, nil
}

// SaveGroup upserts every lifter of a group, e.g. after a registration import.
func (r *LifterRepository) SaveGroup(ctx context.Context, g *models.Group) error {
	for _, l := range g.Lifters {
		if l.GroupName == "" {
			l.GroupName = g.Name
		}
		if err := r.SaveLifter(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func scanLifter(row pgx.Row) (*models.Lifter, error) {
	var (
		l        models.Lifter
		id       uuid.UUID
		attempts []byte
		medal    string
	)
	if err := row.Scan(
		&id, &l.GroupName, &l.FirstName, &l.LastName, &l.Team, &l.LotNumber,
		&l.BodyWeight, &attempts, &l.Withdrawn, &l.ResultRank, &medal, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.ID = id
	l.Medal = models.Medal(medal)
	if err := json.Unmarshal(attempts, &l.Attempts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attempts of %s: %w", id, err)
	}
	return &l, nil
}
