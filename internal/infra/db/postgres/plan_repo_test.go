//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

func TestPlanRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPostgresPlanRepo(testPool)
	txm := NewTxManager(testPool)
	ctx := context.Background()
	cleanup(t)

	// Saving the catalogue twice in a tx must upsert by name.
	for i := 0; i < 2; i++ {
		err := txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			for _, p := range model.DefaultPlans() {
				if err := repo.Save(ctx, tx, p); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	plans, err := repo.ListAll(ctx, repository.NoTX)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("seeding twice must not duplicate plans, got %d", len(plans))
	}
	if plans[0].Price > plans[1].Price || plans[1].Price > plans[2].Price {
		t.Errorf("plans not ordered by price: %+v", plans)
	}
}
