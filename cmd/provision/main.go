package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"telegram-login-relay/internal/config"
	pg "telegram-login-relay/internal/infra/db/postgres"
	"telegram-login-relay/internal/infra/logging"
	"telegram-login-relay/internal/usecase"
)

const usage = `usage: provision [-config cfg.yaml] [-password-prompt] schema|function|seed|all

  schema    create tables and indexes (idempotent)
  function  (re)create generate_auth_token for the configured dashboard URL
  seed      insert the base plans (idempotent)
  all       schema, function, seed in that order
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	prompt := flag.Bool("password-prompt", false, "read the database password from the terminal")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	steps, err := stepsFor(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadProvisionConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(config.LogConfig{Level: cfg.Log.Level, Format: "console"}, true)

	if *prompt {
		fmt.Fprint(os.Stderr, "Database password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			logger.Fatal().Err(err).Msg("read password")
		}
		cfg.Database.Password = string(pw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.Password, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	for _, step := range steps {
		if err := runStep(ctx, step, pool, cfg, logger); err != nil {
			logger.Error().Err(err).Str("step", step).Msg("provisioning failed")
			pool.Close()
			os.Exit(1)
		}
	}
	logger.Info().Strs("steps", steps).Msg("provisioning complete")
}

func stepsFor(cmd string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "schema":
		return []string{"schema"}, nil
	case "function":
		return []string{"function"}, nil
	case "seed":
		return []string{"seed"}, nil
	case "all":
		return []string{"schema", "function", "seed"}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func runStep(ctx context.Context, step string, pool *pgxpool.Pool, cfg *config.Config, logger *zerolog.Logger) error {
	switch step {
	case "schema":
		if err := pg.ApplySchema(ctx, pool); err != nil {
			return err
		}
		logger.Info().Msg("schema applied")
	case "function":
		if err := pg.ApplyIssueFunction(ctx, pool, cfg.Dashboard.URL); err != nil {
			return err
		}
		logger.Info().Str("dashboard", cfg.Dashboard.URL).Msg("generate_auth_token installed")
	case "seed":
		planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool), pg.NewTxManager(pool), logger)
		n, err := planUC.Seed(ctx)
		if err != nil {
			return err
		}
		plans, err := planUC.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, price=%.2f)\n", p.Name, p.DurationDays, p.Price)
		}
		logger.Info().Int("seeded", n).Msg("plans seeded")
	}
	return nil
}
