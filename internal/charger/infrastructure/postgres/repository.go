package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// CreatePending claims the key. ON CONFLICT DO NOTHING makes the insert a
// compare-and-set: exactly one concurrent caller sees a row inserted.
func (r *Repository) CreatePending(ctx context.Context, a domain.Attempt) (bool, error) {
	ct, err := r.pool.Exec(ctx, `INSERT INTO charge_attempts
		(idempotency_key, order_id, amount_paise, currency, outcome, retryable, refunded, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,false,false,$6,$6)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		a.IdempotencyKey, a.OrderID, a.AmountPaise, a.Currency, domain.OutcomePending, a.CreatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repository) Get(ctx context.Context, key string) (domain.Attempt, error) {
	return r.scanOne(ctx, `SELECT idempotency_key, order_id, amount_paise, currency, outcome,
		COALESCE(gateway_ref,''), COALESCE(failure_reason,''), retryable, refunded, created_at, updated_at
		FROM charge_attempts WHERE idempotency_key=$1`, key)
}

func (r *Repository) GetByGatewayRef(ctx context.Context, gatewayRef string) (domain.Attempt, error) {
	return r.scanOne(ctx, `SELECT idempotency_key, order_id, amount_paise, currency, outcome,
		COALESCE(gateway_ref,''), COALESCE(failure_reason,''), retryable, refunded, created_at, updated_at
		FROM charge_attempts WHERE gateway_ref=$1`, gatewayRef)
}

func (r *Repository) MarkOutcome(ctx context.Context, key string, outcome domain.Outcome, gatewayRef, reason string, retryable bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE charge_attempts
		SET outcome=$2, gateway_ref=NULLIF($3,''), failure_reason=NULLIF($4,''), retryable=$5, updated_at=now()
		WHERE idempotency_key=$1 AND outcome=$6`,
		key, outcome, gatewayRef, reason, retryable, domain.OutcomePending)
	return err
}

func (r *Repository) MarkRefunded(ctx context.Context, gatewayRef string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE charge_attempts
		SET refunded=true, updated_at=now()
		WHERE gateway_ref=$1 AND outcome=$2 AND NOT refunded`,
		gatewayRef, domain.OutcomeSuccess)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotRefundable
	}
	return nil
}

func (r *Repository) scanOne(ctx context.Context, query, arg string) (domain.Attempt, error) {
	var a domain.Attempt
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.IdempotencyKey, &a.OrderID, &a.AmountPaise, &a.Currency, &a.Outcome,
		&a.GatewayRef, &a.FailureReason, &a.Retryable, &a.Refunded, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, err
	}
	return a, nil
}
