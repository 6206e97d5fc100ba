package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/logging"
	"telegram-login-relay/internal/infra/metrics"
)

var _ ReferralUseCase = (*referralUC)(nil)

// ReferralUseCase records who invited whom. Both operations are best effort:
// failures are logged and never reach the user.
type ReferralUseCase interface {
	Record(ctx context.Context, referrer, referred int64)
	Complete(ctx context.Context, referred int64, referredAccountID string)
}

type referralUC struct {
	store     repository.AuthStore
	referrals repository.ReferralRepository
	pending   repository.PendingReferralStore
	log       *zerolog.Logger
}

func NewReferralUseCase(store repository.AuthStore, referrals repository.ReferralRepository, pending repository.PendingReferralStore, logger *zerolog.Logger) *referralUC {
	return &referralUC{store: store, referrals: referrals, pending: pending, log: logger}
}

// Record links referred to referrer when the referrer already has an account,
// otherwise parks the pair until the referred account is first created.
// Identities that already own an account are never attributed.
func (u *referralUC) Record(ctx context.Context, referrer, referred int64) {
	defer logging.TraceDuration(u.log, "ReferralUC.Record")()

	if referrer <= 0 || referred <= 0 || referrer == referred {
		metrics.IncReferral("ignored")
		return
	}
	log := u.log.With().Int64("referrer", referrer).Int64("referred", referred).Logger()

	_, err := u.store.LookupAccountID(ctx, referred)
	switch {
	case err == nil:
		metrics.IncReferral("existing_user")
		log.Debug().Msg("referred user already has an account, referral ignored")
		return
	case !errors.Is(err, domain.ErrNotFound):
		metrics.IncReferral("error")
		log.Warn().Err(err).Msg("lookup referred")
		return
	}

	accountID, err := u.store.LookupAccountID(ctx, referrer)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if err := u.pending.Park(ctx, referred, referrer); err != nil {
			metrics.IncReferral("error")
			log.Warn().Err(err).Msg("park referral")
			return
		}
		metrics.IncReferral("parked")
		log.Info().Msg("referrer has no account yet, referral parked")
		return
	case err != nil:
		metrics.IncReferral("error")
		log.Warn().Err(err).Msg("lookup referrer")
		return
	}

	u.link(ctx, &log, referrer, referred, accountID)
}

// Complete links a parked referral for a freshly created account.
func (u *referralUC) Complete(ctx context.Context, referred int64, referredAccountID string) {
	defer logging.TraceDuration(u.log, "ReferralUC.Complete")()

	referrer, ok, err := u.pending.Pop(ctx, referred)
	if err != nil {
		metrics.IncReferral("error")
		u.log.Warn().Err(err).Int64("referred", referred).Msg("pop parked referral")
		return
	}
	if !ok {
		return
	}
	log := u.log.With().Int64("referrer", referrer).Int64("referred", referred).
		Str("referred_account_id", referredAccountID).Logger()

	accountID, err := u.store.LookupAccountID(ctx, referrer)
	if err != nil {
		metrics.IncReferral("dropped")
		log.Info().Err(err).Msg("referrer still unresolved, parked referral dropped")
		return
	}
	u.link(ctx, &log, referrer, referred, accountID)
}

func (u *referralUC) link(ctx context.Context, log *zerolog.Logger, referrer, referred int64, referrerAccountID string) {
	ref, err := model.NewReferral(referrer, referred, referrerAccountID)
	if err != nil {
		metrics.IncReferral("ignored")
		return
	}
	created, err := u.referrals.Create(ctx, repository.NoTX, ref)
	if err != nil {
		metrics.IncReferral("error")
		log.Warn().Err(err).Msg("save referral")
		return
	}
	if !created {
		metrics.IncReferral("duplicate")
		log.Debug().Msg("referral already recorded")
		return
	}
	metrics.IncReferral("recorded")
	log.Info().Msg("referral recorded")
}
