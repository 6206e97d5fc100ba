package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/metrics"
)

// CredentialCounter is the slice of the stats use case the worker needs.
type CredentialCounter interface {
	Credentials(ctx context.Context) (repository.CredentialCounts, error)
}

// CredentialStatsWorker periodically publishes auth token counts by state.
type CredentialStatsWorker struct {
	interval time.Duration
	stats    CredentialCounter
	publish  func(valid, used, expired int)
	log      *zerolog.Logger
}

func NewCredentialStatsWorker(interval time.Duration, stats CredentialCounter, logger *zerolog.Logger) *CredentialStatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "CredentialStatsWorker").Logger()
	return &CredentialStatsWorker{
		interval: interval,
		stats:    stats,
		publish:  metrics.SetTokensByState,
		log:      &l,
	}
}

// Run blocks until ctx is cancelled.
func (w *CredentialStatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting credential stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping credential stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CredentialStatsWorker) tick(ctx context.Context) {
	c, err := w.stats.Credentials(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("credential stats error")
		}
		return
	}
	w.publish(c.Valid, c.Used, c.Expired)
	w.log.Debug().Int("valid", c.Valid).Int("used", c.Used).Int("expired", c.Expired).Msg("credential stats")
}
