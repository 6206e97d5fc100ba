package repository

import (
	"context"

	"telegram-login-relay/internal/domain/model"
)

// PlanRepository is the port for plan persistence.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
