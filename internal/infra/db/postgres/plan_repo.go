package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

// Save upserts by name so seeding can be repeated.
func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, price, duration_days, created_at)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE
  SET price         = EXCLUDED.price,
      duration_days = EXCLUDED.duration_days
RETURNING id::text;`
	row, err := pickRow(ctx, r.pool, tx, q, plan.ID, plan.Name, plan.Price, plan.DurationDays, plan.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&plan.ID); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id::text, name, price::float8, duration_days, created_at
  FROM plans
 ORDER BY price ASC, name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
