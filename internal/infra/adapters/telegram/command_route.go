package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-login-relay/internal/application"
	"telegram-login-relay/internal/infra/logging"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// menuCommands is the order shown in the client menu. Descriptions come from cmd_<name>.
var menuCommands = []string{"start", "help", "referral", "subscription", "support"}

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":        r.handleStartCommand,
		"help":         r.handleHelpCommand,
		"referral":     r.handleReferralCommand,
		"subscription": r.handleSubscriptionCommand,
		"support":      r.handleSupportCommand,
	}
}

// respond sends rep and logs err; the user only ever sees the rendered reply.
func (r *RealTelegramBotAdapter) respond(ctx context.Context, chatID int64, rep application.Reply, err error) error {
	if err != nil {
		logging.With(ctx, r.log).Error().Err(err).Msg("command failed")
	}
	return r.reply(ctx, chatID, rep)
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleStart(ctx, message.From.ID, displayName(message.From), message.CommandArguments())
	return r.respond(ctx, message.Chat.ID, rep, err)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.reply(ctx, message.Chat.ID, r.facade.HandleHelp())
}

func (r *RealTelegramBotAdapter) handleReferralCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleReferral(ctx, message.From.ID, r.username)
	return r.respond(ctx, message.Chat.ID, rep, err)
}

func (r *RealTelegramBotAdapter) handleSubscriptionCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleSubscription(ctx, message.From.ID)
	return r.respond(ctx, message.Chat.ID, rep, err)
}

func (r *RealTelegramBotAdapter) handleSupportCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.reply(ctx, message.Chat.ID, r.facade.HandleSupport())
}

// displayName prefers the @username and falls back to the first name.
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.UserName); name != "" {
		return name
	}
	return strings.TrimSpace(u.FirstName)
}
