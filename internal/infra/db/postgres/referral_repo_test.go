//go:build integration

package postgres

import (
	"context"
	"testing"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

func TestReferralRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	accounts := NewPostgresAccountRepo(testPool)
	repo := NewPostgresReferralRepo(testPool)
	ctx := context.Background()
	cleanup(t)

	referrerID, _, err := accounts.Ensure(ctx, repository.NoTX, 100)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	t.Run("the same pair is recorded once", func(t *testing.T) {
		for i, want := range []bool{true, false} {
			ref, err := model.NewReferral(100, 200, referrerID)
			if err != nil {
				t.Fatal(err)
			}
			created, err := repo.Create(ctx, repository.NoTX, ref)
			if err != nil {
				t.Fatalf("Create #%d: %v", i+1, err)
			}
			if created != want {
				t.Errorf("Create #%d reported created=%v, want %v", i+1, created, want)
			}
		}
		n, err := repo.CountByReferrer(ctx, repository.NoTX, 100)
		if err != nil || n != 1 {
			t.Errorf("CountByReferrer = (%d, %v), want 1", n, err)
		}
	})

	t.Run("self referral is rejected by the table", func(t *testing.T) {
		_, err := testPool.Exec(ctx, `INSERT INTO referrals (referrer_telegram_id, referred_telegram_id) VALUES (5, 5)`)
		if err == nil {
			t.Error("expected the check constraint to reject a self referral")
		}
	})
}
