package model

import (
	"time"

	"telegram-login-relay/internal/domain"
)

// CredentialTTL is the fixed validity window of a login token.
const CredentialTTL = time.Hour

// CredentialState is the lifecycle position of a credential at a given instant.
type CredentialState string

const (
	CredentialValid    CredentialState = "valid"
	CredentialConsumed CredentialState = "consumed"
	CredentialExpired  CredentialState = "expired"
)

// Credential is a single-use login token issued to a Telegram identity.
// Rows are append-only: the only mutation is the one-time flip of Used.
type Credential struct {
	ID         string
	TelegramID int64
	Token      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Used       bool
	UsedAt     *time.Time
}

// NewCredential builds an unconsumed credential expiring CredentialTTL after issuedAt.
func NewCredential(id string, tgID int64, token string, issuedAt time.Time) (*Credential, error) {
	if tgID <= 0 || token == "" || issuedAt.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Credential{
		ID:         id,
		TelegramID: tgID,
		Token:      token,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(CredentialTTL),
	}, nil
}

// State reports the lifecycle state at now. A consumed credential stays
// consumed after its expiry passes.
func (c *Credential) State(now time.Time) CredentialState {
	switch {
	case c.Used:
		return CredentialConsumed
	case !now.Before(c.ExpiresAt):
		return CredentialExpired
	default:
		return CredentialValid
	}
}

// RejectionErr maps a non-valid state to the redemption error the caller sees.
func (c *Credential) RejectionErr(now time.Time) error {
	switch c.State(now) {
	case CredentialConsumed:
		return domain.ErrTokenAlreadyUsed
	case CredentialExpired:
		return domain.ErrTokenExpired
	default:
		return nil
	}
}
