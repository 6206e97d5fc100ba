package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/logging"
	"telegram-login-relay/internal/infra/metrics"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// IssuedCredential is what the requester gets back from Issue.
type IssuedCredential struct {
	Token       string
	RedirectURL string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Redemption is the outcome of a successful Redeem.
type Redemption struct {
	TelegramID     int64
	AccountID      string
	AccountCreated bool
	SessionToken   string
}

// SessionMinter turns a redeemed credential into a dashboard session.
type SessionMinter interface {
	Mint(accountID string, tgID int64) (string, error)
}

// AuthUseCase issues and redeems single-use login tokens.
type AuthUseCase interface {
	Issue(ctx context.Context, tgID int64) (*IssuedCredential, error)
	Redeem(ctx context.Context, token string) (*Redemption, error)
}

type authUC struct {
	store     repository.AuthStore
	creds     repository.CredentialRepository
	accounts  repository.AccountRepository
	referrals ReferralUseCase
	sessions  SessionMinter
	tm        repository.TransactionManager
	dashboard string
	log       *zerolog.Logger

	now      func() time.Time
	newToken func() string
}

// AuthOption customises an authUC. Tests use it to pin the clock.
type AuthOption func(*authUC)

func WithClock(now func() time.Time) AuthOption {
	return func(u *authUC) { u.now = now }
}

func WithTokenSource(gen func() string) AuthOption {
	return func(u *authUC) { u.newToken = gen }
}

func NewAuthUseCase(
	store repository.AuthStore,
	creds repository.CredentialRepository,
	accounts repository.AccountRepository,
	referrals ReferralUseCase,
	sessions SessionMinter,
	tm repository.TransactionManager,
	dashboardURL string,
	logger *zerolog.Logger,
	opts ...AuthOption,
) *authUC {
	u := &authUC{
		store:     store,
		creds:     creds,
		accounts:  accounts,
		referrals: referrals,
		sessions:  sessions,
		tm:        tm,
		dashboard: dashboardURL,
		log:       logger,
		now:       time.Now,
		newToken:  uuid.NewString,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Issue persists a fresh credential for tgID. Earlier credentials for the same
// identity are left untouched and stay redeemable until they expire.
func (u *authUC) Issue(ctx context.Context, tgID int64) (*IssuedCredential, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Issue")()

	if tgID <= 0 {
		metrics.IncTokenIssued("invalid")
		return nil, fmt.Errorf("%w: %w", domain.ErrIssuanceFailed, domain.ErrInvalidArgument)
	}

	token := u.newToken()
	c, err := model.NewCredential("", tgID, token, u.now())
	if err != nil {
		metrics.IncTokenIssued("invalid")
		return nil, fmt.Errorf("%w: %w", domain.ErrIssuanceFailed, err)
	}
	link, err := LoginURL(u.dashboard, token)
	if err != nil {
		metrics.IncTokenIssued("error")
		return nil, fmt.Errorf("%w: %w", domain.ErrIssuanceFailed, err)
	}

	if err := u.store.IssueCredential(ctx, c); err != nil {
		metrics.IncTokenIssued("error")
		logging.With(ctx, u.log).Error().Err(err).Int64("tg_id", tgID).Msg("store credential")
		return nil, fmt.Errorf("%w: %w", domain.ErrIssuanceFailed, err)
	}

	metrics.IncTokenIssued("success")
	u.log.Info().Int64("tg_id", tgID).Str("token", logging.Redact(token, false)).
		Time("expires_at", c.ExpiresAt).Msg("credential issued")

	return &IssuedCredential{
		Token:       c.Token,
		RedirectURL: link,
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
	}, nil
}

// Redeem consumes token, ensures the account exists and mints a session, all in
// one transaction. A failed mint rolls the consumption back so the link can be retried.
func (u *authUC) Redeem(ctx context.Context, token string) (*Redemption, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Redeem")()

	token = strings.TrimSpace(token)
	if token == "" {
		metrics.IncTokenRedeemed("not_found")
		return nil, domain.ErrTokenNotFound
	}

	now := u.now()
	var out Redemption
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.creds.Consume(ctx, tx, token, now)
		if err != nil {
			return err
		}
		id, created, err := u.accounts.Ensure(ctx, tx, c.TelegramID)
		if err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}
		session, err := u.sessions.Mint(id, c.TelegramID)
		if err != nil {
			return fmt.Errorf("mint session: %w", err)
		}
		out = Redemption{
			TelegramID:     c.TelegramID,
			AccountID:      id,
			AccountCreated: created,
			SessionToken:   session,
		}
		return nil
	})
	if err != nil {
		res := redeemResult(err)
		metrics.IncTokenRedeemed(res)
		if res == "error" {
			logging.With(ctx, u.log).Error().Err(err).Msg("redeem credential")
		} else {
			u.log.Info().Err(err).Str("token", logging.Redact(token, false)).Msg("credential rejected")
		}
		return nil, err
	}

	metrics.IncTokenRedeemed("success")
	if out.AccountCreated {
		metrics.IncAccountCreated()
		// Best effort: a parked referral is linked once the referred account exists.
		u.referrals.Complete(ctx, out.TelegramID, out.AccountID)
	}
	u.log.Info().Int64("tg_id", out.TelegramID).Str("account_id", out.AccountID).
		Bool("account_created", out.AccountCreated).Msg("credential redeemed")
	return &out, nil
}

func redeemResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// LoginURL appends the token to <base>/auth/login, keeping any query already on base.
func LoginURL(base, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("dashboard url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("dashboard url %q: %w", base, domain.ErrInvalidArgument)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/auth/login"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
