package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresLedgerSchema mirrors schemas/ledger_schema.sql with native types.
const postgresLedgerSchema = `
CREATE TABLE IF NOT EXISTS valuations (
    id UUID PRIMARY KEY,
    company_id TEXT NOT NULL,
    company_name TEXT NOT NULL,
    as_of_date DATE NOT NULL,
    primary_method TEXT NOT NULL,
    primary_value NUMERIC NOT NULL,
    overall_confidence TEXT NOT NULL,
    input_hash TEXT NOT NULL,
    result_json JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    archived_at TIMESTAMPTZ,
    archive_key TEXT
);
CREATE INDEX IF NOT EXISTS idx_valuations_company ON valuations(company_id);
CREATE INDEX IF NOT EXISTS idx_valuations_created ON valuations(created_at DESC);
`

// OpenPostgres connects a pgx pool to databaseURL and applies the ledger schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresLedgerSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply postgres ledger schema: %w", err)
	}
	return pool, nil
}
