package model

import (
	"time"

	"telegram-login-relay/internal/domain"
)

// Plan is a purchasable subscription tier shown on the dashboard.
type Plan struct {
	ID           string
	Name         string
	Price        float64
	DurationDays int
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, price float64, durationDays int) (*Plan, error) {
	if name == "" || durationDays <= 0 || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		Price:        price,
		DurationDays: durationDays,
		CreatedAt:    time.Now(),
	}, nil
}

// DefaultPlans is the catalogue written by provisioning.
func DefaultPlans() []*Plan {
	mk := func(name string, price float64, days int) *Plan {
		p, _ := NewPlan("", name, price, days)
		return p
	}
	return []*Plan{
		mk("1 месяц", 199, 30),
		mk("3 месяца", 499, 90),
		mk("12 месяцев", 1499, 365),
	}
}
