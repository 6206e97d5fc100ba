package repository

import (
	"context"

	"telegram-login-relay/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.Account, error)
	// LookupAccountID returns ErrNotFound when the identity never logged in.
	LookupAccountID(ctx context.Context, tx Tx, tgID int64) (string, error)
	// Ensure returns the account id for tgID, creating the row if needed.
	Ensure(ctx context.Context, tx Tx, tgID int64) (id string, created bool, err error)
}

// AuthStore is the storage surface of the issuance path: write a credential,
// and resolve an identity to its account.
type AuthStore interface {
	IssueCredential(ctx context.Context, c *model.Credential) error
	LookupAccountID(ctx context.Context, tgID int64) (string, error)
}
