// Package queue carries order events over RabbitMQ: a publisher used by
// checkout and a consumer run by cmd/order-consumer.
package queue

import "github.com/shopspring/decimal"

// OrderPaidQueue is the durable queue order events are routed to.
const OrderPaidQueue = "order.paid"

// OrderPaidEvent is published after a checkout commits. It carries enough
// for downstream consumers to log or notify without querying the
// database.
type OrderPaidEvent struct {
	OrderID        uint64          `json:"order_id"`
	RefCode        string          `json:"ref_code"`
	ShowtimeID     uint64          `json:"showtime_id"`
	UserID         *uint64         `json:"user_id,omitempty"`
	BuyerEmail     string          `json:"buyer_email,omitempty"`
	Seats          []string        `json:"seats"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PromoCode      string          `json:"promo_code,omitempty"`
	EmailSent      bool            `json:"email_sent"`
	PaidAt         string          `json:"paid_at"`
}
