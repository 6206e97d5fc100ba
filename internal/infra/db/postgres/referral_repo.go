package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*PostgresReferralRepo)(nil)

type PostgresReferralRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresReferralRepo(pool *pgxpool.Pool) *PostgresReferralRepo {
	return &PostgresReferralRepo{pool: pool}
}

func (r *PostgresReferralRepo) Create(ctx context.Context, tx repository.Tx, ref *model.Referral) (bool, error) {
	if ref == nil || ref.ReferrerTelegramID == ref.ReferredTelegramID {
		return false, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO referrals (referrer_telegram_id, referred_telegram_id, referrer_id, reward_amount, created_at)
VALUES ($1, $2, $3::uuid, $4, $5)
ON CONFLICT (referrer_telegram_id, referred_telegram_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		ref.ReferrerTelegramID, ref.ReferredTelegramID, ref.ReferrerAccountID, ref.RewardAmount, ref.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create referral: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresReferralRepo) CountByReferrer(ctx context.Context, tx repository.Tx, referrerTgID int64) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM referrals WHERE referrer_telegram_id = $1;`, referrerTgID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return n, nil
}
