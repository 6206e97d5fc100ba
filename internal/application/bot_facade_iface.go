package application

import (
	"context"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/infra/worker"
	"telegram-login-relay/internal/usecase"
)

// ---- small interfaces to decouple the facade from concrete usecase structs ----

type AuthIssuer interface {
	Issue(ctx context.Context, tgID int64) (*usecase.IssuedCredential, error)
}

type ReferralRecorder interface {
	Record(ctx context.Context, referrer, referred int64)
}

type AccountReader interface {
	Subscription(ctx context.Context, tgID int64) (*model.Account, error)
	ReferralCount(ctx context.Context, tgID int64) (int, error)
}

type PlanLister interface {
	List(ctx context.Context) ([]*model.Plan, error)
}

// TaskSubmitter is satisfied by *worker.Pool.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}
