// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/config"
)

const connectAttempts = 5

// NewPool creates and validates a pgxpool connection pool.
// It retries a few times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg config.DB, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", connectAttempts).
			Msg("db connect failed, retrying in 2s")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to postgres: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// Schema creates the tables the repository reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	instructor        TEXT NOT NULL DEFAULT '',
	start_date        TIMESTAMPTZ NOT NULL,
	end_date          TIMESTAMPTZ,
	location          TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL,
	difficulty        TEXT NOT NULL,
	price             DOUBLE PRECISION NOT NULL DEFAULT 0,
	max_attendees     INTEGER,
	current_attendees INTEGER NOT NULL DEFAULT 0,
	featured          BOOLEAN NOT NULL DEFAULT FALSE,
	tags              TEXT[] NOT NULL DEFAULT '{}',
	created_date      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS registrations (
	id                  TEXT PRIMARY KEY,
	event_id            TEXT NOT NULL REFERENCES events(id),
	member_id           TEXT NOT NULL,
	member_display_name TEXT NOT NULL DEFAULT '',
	special_requests    TEXT NOT NULL DEFAULT '',
	emergency_contact   TEXT NOT NULL DEFAULT '',
	registration_date   TIMESTAMPTZ NOT NULL,
	status              TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS registrations_one_confirmed
	ON registrations (event_id, member_id) WHERE status = 'confirmed';
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
