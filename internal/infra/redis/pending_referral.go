package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"telegram-login-relay/internal/domain/ports/repository"
)

// PendingReferralTTL bounds how long a referral waits for its referrer to log in.
const PendingReferralTTL = 30 * 24 * time.Hour

var _ repository.PendingReferralStore = (*PendingReferrals)(nil)

// PendingReferrals parks one referrer per referred identity. A later Park for the
// same referred identity overwrites the earlier one.
type PendingReferrals struct {
	client RedisClient
	ttl    time.Duration
}

func NewPendingReferrals(client RedisClient) *PendingReferrals {
	return &PendingReferrals{client: client, ttl: PendingReferralTTL}
}

func pendingKey(referred int64) string {
	return fmt.Sprintf("referral:pending:%d", referred)
}

func (p *PendingReferrals) Park(ctx context.Context, referred, referrer int64) error {
	return p.client.Set(ctx, pendingKey(referred), strconv.FormatInt(referrer, 10), p.ttl)
}

// Pop is atomic (GETDEL), so two concurrent activations cannot both complete it.
func (p *PendingReferrals) Pop(ctx context.Context, referred int64) (int64, bool, error) {
	val, err := p.client.GetDel(ctx, pendingKey(referred))
	if IsNil(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	referrer, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("pending referral %q: %w", val, err)
	}
	return referrer, true, nil
}
