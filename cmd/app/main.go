// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/application"
	"telegram-login-relay/internal/config"
	tele "telegram-login-relay/internal/infra/adapters/telegram"
	"telegram-login-relay/internal/infra/api"
	pg "telegram-login-relay/internal/infra/db/postgres"
	"telegram-login-relay/internal/infra/i18n"
	"telegram-login-relay/internal/infra/logging"
	red "telegram-login-relay/internal/infra/redis"
	"telegram-login-relay/internal/infra/sched"
	"telegram-login-relay/internal/infra/worker"
	"telegram-login-relay/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted tokens)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("relay stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.Password, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	pending := red.NewPendingReferrals(redisClient)

	// ---- Repositories ----
	txm := pg.NewTxManager(pool)
	credRepo := pg.NewPostgresCredentialRepo(pool)
	accountRepo := pg.NewAccountRepoCacheDecorator(pg.NewPostgresAccountRepo(pool), redisClient, cfg.Redis.TTL)
	referralRepo := pg.NewPostgresReferralRepo(pool)
	planRepo := pg.NewPostgresPlanRepo(pool)
	store := pg.NewAuthStore(credRepo, accountRepo)

	// ---- Use cases ----
	sessions := api.NewSessionManager(cfg.HTTP.SessionSecret, cfg.HTTP.SessionTTL)
	ucLog := logger.With().Str("layer", "usecase").Logger()
	referralUC := usecase.NewReferralUseCase(store, referralRepo, pending, &ucLog)
	authUC := usecase.NewAuthUseCase(store, credRepo, accountRepo, referralUC, sessions, txm, cfg.Dashboard.URL, &ucLog)
	accountUC := usecase.NewAccountUseCase(accountRepo, referralRepo, &ucLog)
	planUC := usecase.NewPlanUseCase(planRepo, txm, &ucLog)
	statsUC := usecase.NewStatsUseCase(credRepo, &ucLog)

	// ---- Background referral recording ----
	tasks := worker.NewPool(cfg.Bot.Workers, logger)
	tasks.Start(ctx)
	defer tasks.Stop()

	// ---- Facade + Telegram ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	facade := application.NewBotFacade(authUC, referralUC, accountUC, planUC, tasks, translator, cfg.Dashboard.SupportURL, logger)

	botLog := logger.With().Str("component", "telegram").Logger()
	bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, facade, rateLimiter, translator, &botLog)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := bot.SetMenuCommands(ctx); err != nil {
		logger.Warn().Err(err).Msg("set menu commands failed")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Credential stats ----
	statsWorker := sched.NewCredentialStatsWorker(cfg.Scheduler.StatsInterval, statsUC, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = statsWorker.Run(ctx)
	}()

	// ---- HTTP API ----
	apiLog := logger.With().Str("component", "http").Logger()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           api.NewServer(authUC, pool, cfg.HTTP.ServiceKey, cfg.HTTP.RequestTimeout, &apiLog).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("bot", bot.Username()).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-srvErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	return nil
}
