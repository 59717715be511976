package primary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"autopress/internal/store"
)

// StoreImpl implements store.RunStore and store.CostTrackingStore on PostgreSQL.
type StoreImpl struct {
	db *pgxpool.Pool
}

var (
	_ store.RunStore          = (*StoreImpl)(nil)
	_ store.CostTrackingStore = (*StoreImpl)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS publish_runs (
	id          UUID PRIMARY KEY,
	brief_title TEXT NOT NULL DEFAULT '',
	slug        TEXT NOT NULL DEFAULT '',
	post_id     BIGINT,
	status      TEXT NOT NULL,
	success     BOOLEAN NOT NULL DEFAULT FALSE,
	error       TEXT,
	trigger     TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS publish_runs_started_at_idx ON publish_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS ai_usage_logs (
	id             BIGSERIAL PRIMARY KEY,
	timestamp      TIMESTAMPTZ NOT NULL,
	provider_name  TEXT NOT NULL,
	service_type   TEXT NOT NULL,
	model_name     TEXT NOT NULL,
	input_tokens   INTEGER NOT NULL DEFAULT 0,
	output_tokens  INTEGER NOT NULL DEFAULT 0,
	cost           DOUBLE PRECISION NOT NULL DEFAULT 0,
	related_run_id UUID
);
`

// NewPrimaryStore creates a new PostgreSQL store and makes sure the schema exists.
func NewPrimaryStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, errors.New("database DSN cannot be empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := &StoreImpl{db: dbpool}
	if err := s.EnsureSchema(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the ledger tables if they do not exist.
func (s *StoreImpl) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection pool.
func (s *StoreImpl) Close() {
	s.db.Close()
}
