package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/mcdev12/liftcontrol/go/internal/dbconfig"
	"github.com/mcdev12/liftcontrol/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Database bundles the two handles the store uses: lib/pq for the journal
// and migrations, a pgx pool for lifter writes.
type Database struct {
	SQL  *sql.DB
	Pool *pgxpool.Pool
}

func setupDatabase(ctx context.Context, cfg dbconfig.Config) (*Database, error) {
	database, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := store.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}

	poolCfg, err := cfg.PoolConfig()
	if err != nil {
		database.Close()
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")

	return &Database{SQL: database, Pool: pool}, nil
}

// Close releases both handles.
func (d *Database) Close() {
	d.Pool.Close()
	if err := d.SQL.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}
