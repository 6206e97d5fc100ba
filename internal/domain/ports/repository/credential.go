package repository

import (
	"context"
	"time"

	"telegram-login-relay/internal/domain/model"
)

// CredentialCounts is a snapshot of the token table by lifecycle state.
type CredentialCounts struct {
	Valid   int
	Used    int
	Expired int
}

// CredentialRepository is the port for the auth_tokens table.
type CredentialRepository interface {
	// Create inserts a new credential row. Existing rows are never touched.
	Create(ctx context.Context, tx Tx, c *model.Credential) error
	// Consume marks the credential used in a single conditional update when it is
	// unused and not expired at now, and returns it. Otherwise it returns
	// ErrTokenNotFound, ErrTokenAlreadyUsed or ErrTokenExpired.
	Consume(ctx context.Context, tx Tx, token string, now time.Time) (*model.Credential, error)
	CountByState(ctx context.Context, tx Tx, now time.Time) (CredentialCounts, error)
}
