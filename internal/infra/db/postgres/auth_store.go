package postgres

import (
	"context"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

var _ repository.AuthStore = (*AuthStore)(nil)

// AuthStore narrows the credential and account repositories to what the issuer needs.
type AuthStore struct {
	creds    repository.CredentialRepository
	accounts repository.AccountRepository
}

func NewAuthStore(creds repository.CredentialRepository, accounts repository.AccountRepository) *AuthStore {
	return &AuthStore{creds: creds, accounts: accounts}
}

func (s *AuthStore) IssueCredential(ctx context.Context, c *model.Credential) error {
	return s.creds.Create(ctx, repository.NoTX, c)
}

func (s *AuthStore) LookupAccountID(ctx context.Context, tgID int64) (string, error) {
	return s.accounts.LookupAccountID(ctx, repository.NoTX, tgID)
}
