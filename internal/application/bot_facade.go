package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/ports/adapter"
	"telegram-login-relay/internal/infra/i18n"
	"telegram-login-relay/internal/infra/logging"
)

// Reply is a rendered bot answer; the Telegram adapter forwards it as is.
type Reply struct {
	Text      string
	ParseMode string
	Buttons   [][]adapter.InlineButton
}

// BotFacade composes usecases into the bot commands.
// Every method returns a ready-to-send Reply, also when it returns an error:
// the caller logs the error and still sends the (generic) reply.
type BotFacade struct {
	auth       AuthIssuer
	referrals  ReferralRecorder
	accounts   AccountReader
	plans      PlanLister
	tasks      TaskSubmitter
	t          *i18n.Translator
	supportURL string
	log        *zerolog.Logger
	now        func() time.Time
}

func NewBotFacade(
	auth AuthIssuer,
	referrals ReferralRecorder,
	accounts AccountReader,
	plans PlanLister,
	tasks TaskSubmitter,
	translator *i18n.Translator,
	supportURL string,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		auth:       auth,
		referrals:  referrals,
		accounts:   accounts,
		plans:      plans,
		tasks:      tasks,
		t:          translator,
		supportURL: supportURL,
		log:        logger,
		now:        time.Now,
	}
}

// ParseReferrer reads the /start payload. Only a positive numeric id other than
// the caller counts as a referrer.
func ParseReferrer(arg string, self int64) (int64, bool) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 || id == self {
		return 0, false
	}
	return id, true
}

// HandleStart issues a login link and, when arg names a referrer, records the
// referral in the background once the link exists.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, name, arg string) (Reply, error) {
	issued, err := b.auth.Issue(ctx, tgID)
	if err != nil {
		return Reply{Text: b.t.T("start_failed")}, fmt.Errorf("issue login link: %w", err)
	}

	if referrer, ok := ParseReferrer(arg, tgID); ok {
		b.submitReferral(ctx, referrer, tgID)
	}

	if name == "" {
		name = strconv.FormatInt(tgID, 10)
	}
	return Reply{
		Text: b.t.T("start_welcome", name),
		Buttons: [][]adapter.InlineButton{
			{{Text: b.t.T("start_button"), URL: issued.RedirectURL}},
		},
	}, nil
}

func (b *BotFacade) submitReferral(ctx context.Context, referrer, referred int64) {
	traceID := logging.TraceID(ctx)
	err := b.tasks.Submit(func(ctx context.Context) error {
		ctx = logging.WithTraceID(ctx, traceID)
		b.referrals.Record(ctx, referrer, referred)
		return nil
	})
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Int64("referrer", referrer).Msg("referral dropped")
	}
}

func (b *BotFacade) HandleHelp() Reply {
	return Reply{Text: b.t.T("help_text"), ParseMode: adapter.ParseModeHTML}
}

// HandleReferral renders the personal invite link https://t.me/<bot>?start=<tgID>.
func (b *BotFacade) HandleReferral(ctx context.Context, tgID int64, botUsername string) (Reply, error) {
	link := ReferralLink(botUsername, tgID)
	n, err := b.accounts.ReferralCount(ctx, tgID)
	if err != nil {
		// The link is still useful without the counter.
		logging.With(ctx, b.log).Warn().Err(err).Msg("count referrals")
		n = 0
	}
	return Reply{Text: b.t.T("referral_text", html.EscapeString(link), n), ParseMode: adapter.ParseModeHTML}, nil
}

func ReferralLink(botUsername string, tgID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", strings.TrimPrefix(botUsername, "@"), tgID)
}

func (b *BotFacade) HandleSubscription(ctx context.Context, tgID int64) (Reply, error) {
	acc, err := b.accounts.Subscription(ctx, tgID)
	if errors.Is(err, domain.ErrNotFound) {
		return Reply{Text: b.t.T("subscription_no_account")}, nil
	}
	if err != nil {
		return Reply{Text: b.t.T("error_generic")}, fmt.Errorf("load subscription: %w", err)
	}

	now := b.now()
	if acc.HasActiveSubscription(now) {
		return Reply{
			Text: b.t.T("subscription_active",
				html.EscapeString(acc.PlanName),
				acc.SubscriptionExpires.Format("02.01.2006"),
				acc.DaysRemaining(now),
				acc.Balance),
			ParseMode: adapter.ParseModeHTML,
		}, nil
	}

	var sb strings.Builder
	sb.WriteString(b.t.T("subscription_inactive", acc.Balance))
	if b.plans != nil {
		plans, err := b.plans.List(ctx)
		if err != nil {
			logging.With(ctx, b.log).Warn().Err(err).Msg("list plans")
		} else if len(plans) > 0 {
			sb.WriteString("\n\n")
			sb.WriteString(b.t.T("subscription_plans_header"))
			for _, p := range plans {
				sb.WriteString("\n")
				sb.WriteString(b.t.T("subscription_plan_line", html.EscapeString(p.Name), p.Price, p.DurationDays))
			}
		}
	}
	return Reply{Text: sb.String(), ParseMode: adapter.ParseModeHTML}, nil
}

func (b *BotFacade) HandleSupport() Reply {
	return Reply{
		Text:      b.t.T("support_text"),
		ParseMode: adapter.ParseModeHTML,
		Buttons: [][]adapter.InlineButton{
			{{Text: b.t.T("support_button"), URL: b.supportURL}},
		},
	}
}

func (b *BotFacade) HandleUnknown() Reply {
	return Reply{Text: b.t.T("unknown_command")}
}

func (b *BotFacade) RateLimited() Reply {
	return Reply{Text: b.t.T("rate_limited")}
}
