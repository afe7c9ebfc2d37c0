package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusPaid is the only status written by payment confirmation.
const OrderStatusPaid = "paid"

// Order records one checkout. RefCode is supplied by the caller and is
// unique, which makes confirmation idempotent.
//
// Fields:
//
//	ID             – primary key identifier.
//	RefCode        – caller supplied reference code (unique).
//	ShowtimeID     – showtime the tickets are for.
//	UserID         – owning user when the buyer email is registered.
//	BuyerEmail     – email supplied at checkout.
//	Status         – order state ("paid").
//	TotalAmount    – amount charged after discount.
//	PromoCode      – applied promotion code, if any.
//	DiscountAmount – discount granted by PromoCode.
//	CreatedAt      – creation timestamp.
//	PaidAt         – payment timestamp.
type Order struct {
	ID             uint64          // orders.id
	RefCode        string          // orders.ref_code
	ShowtimeID     uint64          // orders.showtime_id
	UserID         *uint64         // orders.user_id (nullable)
	BuyerEmail     *string         // orders.buyer_email (nullable)
	Status         string          // orders.status
	TotalAmount    decimal.Decimal // orders.total_amount
	PromoCode      *string         // orders.promo_code (nullable)
	DiscountAmount decimal.Decimal // orders.discount_amount
	CreatedAt      time.Time       // orders.created_at
	PaidAt         *time.Time      // orders.paid_at (nullable)
}

// Ticket is one seat purchased in an order.
type Ticket struct {
	ID        uint64          // tickets.id
	OrderID   uint64          // tickets.order_id
	SeatLabel string          // tickets.seat_label
	Price     decimal.Decimal // tickets.price
	CreatedAt time.Time       // tickets.created_at
}
