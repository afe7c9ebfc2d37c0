package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// Reason is a caller-facing explanation of why a promotion cannot be used.
type Reason string

const (
	ReasonNotFound     Reason = "Promotion not found"
	ReasonInactive     Reason = "Promotion inactive"
	ReasonNotStarted   Reason = "Promotion not started"
	ReasonExpired      Reason = "Promotion expired"
	ReasonUsageLimit   Reason = "Promotion usage limit reached"
	ReasonPerUserLimit Reason = "You already used this code"
)

// IneligibleError reports a failed eligibility check.
type IneligibleError struct {
	PromotionID uint64
	Reason      Reason
}

func (e *IneligibleError) Error() string { return string(e.Reason) }

// Store is the read side the checker needs. Inside a checkout transaction
// it is backed by a locking repository.
type Store interface {
	GetByID(ctx context.Context, id uint64) (model.Promotion, error)
	CountRedemptions(ctx context.Context, promotionID uint64) (int, error)
	CountRedemptionsBy(ctx context.Context, promotionID uint64, userID *uint64, email string) (int, error)
}

// Identity attributes a redemption. Either part may be empty.
type Identity struct {
	UserID *uint64
	Email  string
}

func (i Identity) empty() bool { return i.UserID == nil && i.Email == "" }

// Checker decides whether a promotion may be redeemed now.
type Checker struct {
	store Store
	now   func() time.Time
}

// NewChecker returns a Checker reading from store. A nil now uses
// time.Now.
func NewChecker(store Store, now func() time.Time) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{store: store, now: now}
}

// Check runs, in order: existence and active flag, validity window, global
// usage limit, per-identity usage limit. It returns the promotion when
// eligible and an *IneligibleError naming the first failed check
// otherwise. The per-identity limit is not enforced for an empty
// identity.
func (c *Checker) Check(ctx context.Context, promotionID uint64, who Identity) (model.Promotion, error) {
	p, err := c.store.GetByID(ctx, promotionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Promotion{}, &IneligibleError{PromotionID: promotionID, Reason: ReasonNotFound}
	}
	if err != nil {
		return model.Promotion{}, errors.Wrap(err, "load promotion")
	}
	if !p.Active {
		return p, &IneligibleError{PromotionID: p.ID, Reason: ReasonInactive}
	}

	now := c.now()
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return p, &IneligibleError{PromotionID: p.ID, Reason: ReasonNotStarted}
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return p, &IneligibleError{PromotionID: p.ID, Reason: ReasonExpired}
	}

	if p.UsageLimit != nil {
		used, err := c.store.CountRedemptions(ctx, p.ID)
		if err != nil {
			return p, err
		}
		if used >= *p.UsageLimit {
			return p, &IneligibleError{PromotionID: p.ID, Reason: ReasonUsageLimit}
		}
	}
	if p.UsagePerUser != nil && !who.empty() {
		used, err := c.store.CountRedemptionsBy(ctx, p.ID, who.UserID, who.Email)
		if err != nil {
			return p, err
		}
		if used >= *p.UsagePerUser {
			return p, &IneligibleError{PromotionID: p.ID, Reason: ReasonPerUserLimit}
		}
	}
	return p, nil
}
