package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion discount types.
const (
	PromotionPercent = "PERCENT"
	PromotionFixed   = "FIXED"
)

// Promotion is a discount rule identified by a code. Optional limits are
// nil (or an invalid NullDecimal) when unset.
//
// Fields:
//
//	ID           – primary key identifier.
//	Code         – unique, trimmed and upper-cased code.
//	Type         – PERCENT or FIXED.
//	Value        – percentage points or fixed amount.
//	MaxDiscount  – optional cap on the computed discount.
//	MinSpend     – optional subtotal below which no discount applies.
//	StartsAt     – optional start of the validity window.
//	EndsAt       – optional end of the validity window.
//	UsageLimit   – optional total number of redemptions.
//	UsagePerUser – optional redemptions per user id or email.
//	Active       – disabled promotions are never eligible.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Promotion struct {
	ID           uint64              // promotions.id
	Code         string              // promotions.code
	Type         string              // promotions.type
	Value        decimal.Decimal     // promotions.value
	MaxDiscount  decimal.NullDecimal // promotions.max_discount (nullable)
	MinSpend     decimal.NullDecimal // promotions.min_spend (nullable)
	StartsAt     *time.Time          // promotions.starts_at (nullable)
	EndsAt       *time.Time          // promotions.ends_at (nullable)
	UsageLimit   *int                // promotions.usage_limit (nullable)
	UsagePerUser *int                // promotions.usage_per_user (nullable)
	Active       bool                // promotions.active
	CreatedAt    time.Time           // promotions.created_at
	UpdatedAt    time.Time           // promotions.updated_at
}

// PromotionRedemption records one consumption of a promotion by an order,
// attributed to a user id and/or an email.
type PromotionRedemption struct {
	ID          uint64    // promotion_redemptions.id
	PromotionID uint64    // promotion_redemptions.promotion_id
	OrderID     uint64    // promotion_redemptions.order_id
	UserID      *uint64   // promotion_redemptions.user_id (nullable)
	Email       *string   // promotion_redemptions.email (nullable)
	CreatedAt   time.Time // promotion_redemptions.created_at
}

// PromotionStats pairs a promotion with its redemption counters.
type PromotionStats struct {
	Promotion
	UsageCount  int
	UniqueUsers int
}
