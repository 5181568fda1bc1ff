package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the order and outbox tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			total_paise BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS orders_status_updated_idx ON orders (status, updated_at)`,
		`CREATE TABLE IF NOT EXISTS order_lines (
			order_id TEXT NOT NULL REFERENCES orders(id),
			event_id TEXT NOT NULL,
			seat_id TEXT NOT NULL,
			price_paise BIGINT NOT NULL,
			PRIMARY KEY (order_id, event_id, seat_id)
		)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload BYTEA,
			headers JSONB,
			traceparent TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			relay_id TEXT,
			lease_until TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (status, id)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
