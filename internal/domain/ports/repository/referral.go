package repository

import (
	"context"

	"telegram-login-relay/internal/domain/model"
)

type ReferralRepository interface {
	// Create inserts the link unless the (referrer, referred) pair exists.
	// The bool reports whether a row was written.
	Create(ctx context.Context, tx Tx, r *model.Referral) (bool, error)
	CountByReferrer(ctx context.Context, tx Tx, referrerTgID int64) (int, error)
}

// PendingReferralStore parks referrals whose referrer had no account yet.
type PendingReferralStore interface {
	Park(ctx context.Context, referred, referrer int64) error
	// Pop removes and returns the parked referrer for referred; ok is false if none.
	Pop(ctx context.Context, referred int64) (referrer int64, ok bool, err error)
}
