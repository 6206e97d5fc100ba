package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/logging"
)

var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase serves read-only account views for the bot.
type AccountUseCase interface {
	// Subscription returns ErrNotFound when tgID never logged in to the dashboard.
	Subscription(ctx context.Context, tgID int64) (*model.Account, error)
	ReferralCount(ctx context.Context, tgID int64) (int, error)
}

type accountUC struct {
	accounts  repository.AccountRepository
	referrals repository.ReferralRepository
	log       *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, referrals repository.ReferralRepository, logger *zerolog.Logger) *accountUC {
	return &accountUC{accounts: accounts, referrals: referrals, log: logger}
}

func (u *accountUC) Subscription(ctx context.Context, tgID int64) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Subscription")()
	return u.accounts.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *accountUC) ReferralCount(ctx context.Context, tgID int64) (int, error) {
	defer logging.TraceDuration(u.log, "AccountUC.ReferralCount")()
	return u.referrals.CountByReferrer(ctx, repository.NoTX, tgID)
}
