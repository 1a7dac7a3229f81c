package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"CrediPulse/pkg/config"
)

// NewPostgresPool configures a PostgreSQL connection pool from runtime settings.
func NewPostgresPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.Postgres.MaxConns)
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.Postgres.MinConns)
	}
	if cfg.Postgres.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.Postgres.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS emotional_events_summary (
	    user_id              TEXT NOT NULL,
	    summary_date         DATE NOT NULL,
	    avg_positivity_score DOUBLE PRECISION NOT NULL,
	    avg_intensity_score  DOUBLE PRECISION NOT NULL,
	    avg_stress_level     DOUBLE PRECISION NOT NULL,
	    event_count          BIGINT NOT NULL,
	    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	    PRIMARY KEY (user_id, summary_date)
	)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
	    event_id     TEXT PRIMARY KEY,
	    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
	    id         BIGSERIAL PRIMARY KEY,
	    user_id    TEXT NOT NULL,
	    amount     NUMERIC(14,2) NOT NULL,
	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created
	    ON transactions (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS credit_limits (
	    id            UUID PRIMARY KEY,
	    user_id       TEXT NOT NULL,
	    status        TEXT NOT NULL,
	    credit_limit  NUMERIC(14,2) NOT NULL,
	    interest_rate NUMERIC(6,2) NOT NULL,
	    credit_type   TEXT NOT NULL,
	    expires_at    TIMESTAMPTZ NOT NULL,
	    activated_at  TIMESTAMPTZ,
	    notified_at   TIMESTAMPTZ,
	    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_limits_user_status
	    ON credit_limits (user_id, status)`,
}

// InitSchema creates the relational schema if missing.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
