package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-login-relay/internal/application"
	"telegram-login-relay/internal/config"
	"telegram-login-relay/internal/domain/ports/adapter"
	"telegram-login-relay/internal/infra/i18n"
	"telegram-login-relay/internal/infra/logging"
	"telegram-login-relay/internal/infra/metrics"
	red "telegram-login-relay/internal/infra/redis"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotFacade is the command surface the adapter delegates to.
type BotFacade interface {
	HandleStart(ctx context.Context, tgID int64, name, arg string) (application.Reply, error)
	HandleHelp() application.Reply
	HandleReferral(ctx context.Context, tgID int64, botUsername string) (application.Reply, error)
	HandleSubscription(ctx context.Context, tgID int64) (application.Reply, error)
	HandleSupport() application.Reply
	HandleUnknown() application.Reply
	RateLimited() application.Reply
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter long-polls updates and delegates commands to the facade.
type RealTelegramBotAdapter struct {
	api         botAPI
	username    string
	facade      BotFacade
	rateLimiter RateLimiter
	rateLimit   int
	t           *i18n.Translator
	log         *zerolog.Logger

	updateWorkers int

	mu            sync.Mutex
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, facade BotFacade, rateLimiter RateLimiter, translator *i18n.Translator, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	username := cfg.Username
	if username == "" {
		username = bot.Self.UserName
	}
	return newAdapter(bot, username, cfg, facade, rateLimiter, translator, logger)
}

func newAdapter(api botAPI, username string, cfg *config.BotConfig, facade BotFacade, rateLimiter RateLimiter, translator *i18n.Translator, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 20
	}
	return &RealTelegramBotAdapter{
		api:           api,
		username:      username,
		facade:        facade,
		rateLimiter:   rateLimiter,
		rateLimit:     limit,
		t:             translator,
		log:           logger,
		updateWorkers: workers,
	}, nil
}

func (r *RealTelegramBotAdapter) Username() string { return r.username }

// StartPolling blocks until ctx is cancelled or StopPolling is called.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancelPolling = cancel
	r.mu.Unlock()
	defer cancel()

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for up := range updateChan {
				r.dispatch(ctx, id, up)
			}
		}(i)
	}

	r.log.Info().Str("bot", r.username).Int("workers", r.updateWorkers).Msg("telegram polling started")
	defer func() {
		r.api.StopReceivingUpdates()
		close(updateChan)
		wg.Wait()
		r.log.Info().Msg("telegram polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case updateChan <- up:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, worker int, up tgbotapi.Update) {
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())
	if up.Message != nil && up.Message.From != nil {
		ctx = logging.WithTgID(ctx, up.Message.From.ID)
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.With(ctx, r.log).Error().Interface("panic", rec).Int("worker", worker).Msg("update handler panicked")
		}
	}()
	if err := r.handleUpdate(ctx, up); err != nil {
		logging.With(ctx, r.log).Error().Err(err).Int("worker", worker).Msg("handle update")
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	command := "message"
	if msg.IsCommand() {
		command = strings.ToLower(msg.Command())
	}

	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(msg.From.ID, command), r.rateLimit, time.Minute)
		if err != nil {
			// Fail open: a Redis outage must not take the bot down.
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.reply(ctx, msg.Chat.ID, r.facade.RateLimited())
		}
	}

	if !msg.IsCommand() {
		return r.reply(ctx, msg.Chat.ID, r.facade.HandleUnknown())
	}

	handler, ok := r.commandRoutes()[command]
	if !ok {
		metrics.IncTelegramCommand("unknown")
		return r.reply(ctx, msg.Chat.ID, r.facade.HandleUnknown())
	}
	metrics.IncTelegramCommand(command)
	logging.With(ctx, r.log).Debug().Str("command", command).Msg("command received")
	return handler(ctx, msg)
}

func (r *RealTelegramBotAdapter) reply(ctx context.Context, chatID int64, rep application.Reply) error {
	return r.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      rep.Text,
		ParseMode: rep.ParseMode,
		Buttons:   rep.Buttons,
	})
}

// SendMessage sends text with an optional inline keyboard.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	if kb, ok := buildKeyboard(params.Buttons); ok {
		msg.ReplyMarkup = kb
	}
	_, err := r.api.Send(msg)
	return err
}

// SetMenuCommands registers the command list shown in the Telegram client menu.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	cmds := make([]tgbotapi.BotCommand, 0, len(menuCommands))
	for _, c := range menuCommands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c, Description: r.t.T("cmd_" + c)})
	}
	_, err := r.api.Request(tgbotapi.NewSetMyCommands(cmds...))
	return err
}

// buildKeyboard converts port buttons to an inline keyboard.
// URL buttons open a link, Data buttons send a callback, others fall back to their label.
func buildKeyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				out = append(out, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				out = append(out, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				out = append(out, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, out)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
