package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Credentials(ctx context.Context) (repository.CredentialCounts, error)
}

type statsUC struct {
	creds repository.CredentialRepository
	now   func() time.Time
	log   *zerolog.Logger
}

func NewStatsUseCase(creds repository.CredentialRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{creds: creds, now: time.Now, log: logger}
}

// Credentials counts auth tokens by lifecycle state at the current instant.
func (s *statsUC) Credentials(ctx context.Context) (repository.CredentialCounts, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Credentials")()
	return s.creds.CountByState(ctx, repository.NoTX, s.now())
}
