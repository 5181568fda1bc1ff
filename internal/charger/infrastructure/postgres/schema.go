package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the charge attempt table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS charge_attempts (
			idempotency_key TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			amount_paise BIGINT NOT NULL,
			currency TEXT NOT NULL,
			outcome TEXT NOT NULL,
			gateway_ref TEXT UNIQUE,
			failure_reason TEXT,
			retryable BOOLEAN NOT NULL DEFAULT false,
			refunded BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
