// Package promotion evaluates discount rules and enforces promotion
// eligibility. Evaluate is pure; Checker consults redemption counts
// through a Store. Preview, apply and checkout all go through this pair.
package promotion

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Evaluate computes the discount p grants on subtotal.
//
// Below MinSpend the discount is zero. PERCENT yields subtotal*value/100
// and FIXED yields value. The result is capped by MaxDiscount, clamped to
// [0, subtotal] and rounded half away from zero to two decimal places.
func Evaluate(p model.Promotion, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	if p.MinSpend.Valid && subtotal.LessThan(p.MinSpend.Decimal) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch strings.ToUpper(p.Type) {
	case model.PromotionPercent:
		discount = subtotal.Mul(p.Value).Div(hundred)
	case model.PromotionFixed:
		discount = p.Value
	}
	if p.MaxDiscount.Valid {
		discount = decimal.Min(discount, p.MaxDiscount.Decimal)
	}
	discount = decimal.Max(decimal.Zero, decimal.Min(discount, subtotal))
	return discount.Round(2)
}

// FinalTotal is subtotal minus discount, never negative.
func FinalTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount)).Round(2)
}

// Label renders a short description such as "10% off" or "20 THB off".
func Label(p model.Promotion) string {
	if strings.ToUpper(p.Type) == model.PromotionPercent {
		return p.Value.String() + "% off"
	}
	return p.Value.String() + " THB off"
}

// ValidType reports whether t names a supported discount type.
func ValidType(t string) bool {
	switch strings.ToUpper(t) {
	case model.PromotionPercent, model.PromotionFixed:
		return true
	}
	return false
}
