package model

import (
	"time"
)

// Account is the dashboard profile linked to a Telegram identity.
// It is created lazily on the first successful token redemption.
type Account struct {
	ID                  string
	TelegramID          int64
	Name                string
	Balance             float64
	PlanID              *string
	PlanName            string
	SubscriptionExpires *time.Time
	CreatedAt           time.Time
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// HasActiveSubscription reports whether the subscription runs past now.
func (a *Account) HasActiveSubscription(now time.Time) bool {
	return a != nil && a.SubscriptionExpires != nil && a.SubscriptionExpires.After(now)
}

// DaysRemaining rounds the remaining subscription time down to whole days.
func (a *Account) DaysRemaining(now time.Time) int {
	if !a.HasActiveSubscription(now) {
		return 0
	}
	return int(a.SubscriptionExpires.Sub(now).Hours() / 24)
}
