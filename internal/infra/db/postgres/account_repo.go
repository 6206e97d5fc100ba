package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

// PostgresAccountRepo reads and lazily creates rows in users.
type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

func (r *PostgresAccountRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Account, error) {
	const q = `
SELECT u.id::text, u.telegram_id, COALESCE(u.name, ''), u.balance::float8,
       u.plan_id::text, COALESCE(p.name, ''), u.subscription_expires, u.created_at
  FROM users u
  LEFT JOIN plans p ON p.id = u.plan_id
 WHERE u.telegram_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, tgID)
	if err != nil {
		return nil, err
	}
	var a model.Account
	if err := row.Scan(&a.ID, &a.TelegramID, &a.Name, &a.Balance, &a.PlanID, &a.PlanName, &a.SubscriptionExpires, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (r *PostgresAccountRepo) LookupAccountID(ctx context.Context, tx repository.Tx, tgID int64) (string, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id::text FROM users WHERE telegram_id = $1;`, tgID)
	if err != nil {
		return "", err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}
	return id, nil
}

// Ensure upserts on telegram_id. xmax is zero only for a freshly inserted tuple,
// which tells a create apart from a conflict without a second round trip.
func (r *PostgresAccountRepo) Ensure(ctx context.Context, tx repository.Tx, tgID int64) (string, bool, error) {
	if tgID <= 0 {
		return "", false, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO users (telegram_id)
VALUES ($1)
ON CONFLICT (telegram_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id
RETURNING id::text, (xmax = 0);`
	row, err := pickRow(ctx, r.pool, tx, q, tgID)
	if err != nil {
		return "", false, err
	}
	var (
		id      string
		created bool
	)
	if err := row.Scan(&id, &created); err != nil {
		return "", false, fmt.Errorf("ensure account: %w", err)
	}
	return id, created, nil
}
