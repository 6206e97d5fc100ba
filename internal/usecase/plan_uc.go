package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/logging"
)

var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase reads and seeds the plan catalogue.
type PlanUseCase interface {
	List(ctx context.Context) ([]*model.Plan, error)
	// Seed upserts model.DefaultPlans in one transaction and returns how many were written.
	Seed(ctx context.Context) (int, error)
}

type planUC struct {
	plans repository.PlanRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, tm repository.TransactionManager, logger *zerolog.Logger) *planUC {
	return &planUC{plans: plans, tm: tm, log: logger}
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.List")()
	return u.plans.ListAll(ctx, repository.NoTX)
}

func (u *planUC) Seed(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Seed")()

	catalogue := model.DefaultPlans()
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, p := range catalogue {
			if err := u.plans.Save(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	u.log.Info().Int("plans", len(catalogue)).Msg("plans seeded")
	return len(catalogue), nil
}
