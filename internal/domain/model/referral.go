package model

import (
	"time"

	"telegram-login-relay/internal/domain"
)

// Referral links the inviting identity to the invited one. A pair is recorded at most once.
type Referral struct {
	ID                 string
	ReferrerTelegramID int64
	ReferredTelegramID int64
	ReferrerAccountID  string
	RewardAmount       float64
	CreatedAt          time.Time
}

func NewReferral(referrer, referred int64, referrerAccountID string) (*Referral, error) {
	if referrer <= 0 || referred <= 0 || referrer == referred || referrerAccountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Referral{
		ReferrerTelegramID: referrer,
		ReferredTelegramID: referred,
		ReferrerAccountID:  referrerAccountID,
		CreatedAt:          time.Now(),
	}, nil
}
