// Package checkout turns a confirmed payment into a paid order with its
// tickets, redemption and confirmation email.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/notify"
	"github.com/iliyamo/cinema-ticket-booking/internal/promotion"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// ValidationError rejects a request before anything is written.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Request is a payment confirmation.
type Request struct {
	RefCode      string
	Email        string
	ShowtimeID   uint64
	Seats        []string
	PricePerSeat decimal.Decimal
	PromoCode    string
}

// Result reports the order id and whether the ticket email went out.
// Existing is set when the reference code had already been confirmed.
type Result struct {
	OrderID   uint64
	EmailSent bool
	Existing  bool
}

// Store is the non-transactional side of checkout persistence.
type Store interface {
	promotion.UserFinder
	OrderByRef(ctx context.Context, ref string) (model.Order, error)
	ShowtimeExists(ctx context.Context, id uint64) (bool, error)
	PromotionByCode(ctx context.Context, code string) (model.Promotion, error)
	OrderDetail(ctx context.Context, orderID uint64) (repository.OrderDetail, error)
	// Atomic runs fn in one transaction, committing when fn returns nil.
	Atomic(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is bound to a checkout transaction. Promotion reads lock the
// row until commit.
type TxStore interface {
	promotion.Store
	CreateOrder(ctx context.Context, o *model.Order) error
	CreateTickets(ctx context.Context, orderID uint64, seats []string, price decimal.Decimal) error
	ReleaseHolds(ctx context.Context, showtimeID uint64, seats []string) error
	CreateRedemption(ctx context.Context, r *model.PromotionRedemption) error
}

// Publisher receives order events after commit.
type Publisher interface {
	PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error
}

// Finalizer confirms payments.
type Finalizer struct {
	store  Store
	mailer notify.Mailer
	events Publisher
	caps   database.Capabilities
	lg     *zap.Logger
	now    func() time.Time
}

// NewFinalizer wires a Finalizer. mailer and events may be nil.
func NewFinalizer(store Store, mailer notify.Mailer, events Publisher, caps database.Capabilities, lg *zap.Logger) *Finalizer {
	return &Finalizer{store: store, mailer: mailer, events: events, caps: caps, lg: lg, now: time.Now}
}

// errLostRace marks an order insert beaten by a concurrent checkout with
// the same reference code.
var errLostRace = errors.New("order already created")

// ConfirmPayment creates the paid order for req. A reference code that
// already has an order returns that order untouched.
func (f *Finalizer) ConfirmPayment(ctx context.Context, req Request) (Result, error) {
	req, err := f.validate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	existing, err := f.store.OrderByRef(ctx, req.RefCode)
	switch {
	case err == nil:
		return Result{OrderID: existing.ID, Existing: true}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Result{}, errors.Wrap(err, "lookup order")
	}

	who, err := promotion.ResolveIdentity(ctx, f.store, req.Email)
	if err != nil {
		return Result{}, err
	}

	var promo *model.Promotion
	if req.PromoCode != "" {
		p, err := f.store.PromotionByCode(ctx, req.PromoCode)
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, invalid("Invalid promotion code")
		}
		if err != nil {
			return Result{}, errors.Wrap(err, "lookup promotion")
		}
		promo = &p
	}

	subtotal := req.PricePerSeat.Mul(decimal.NewFromInt(int64(len(req.Seats))))
	paidAt := f.now().UTC()
	order := model.Order{
		RefCode:        req.RefCode,
		ShowtimeID:     req.ShowtimeID,
		UserID:         who.UserID,
		Status:         model.OrderStatusPaid,
		TotalAmount:    subtotal,
		DiscountAmount: decimal.Zero,
		PaidAt:         &paidAt,
	}
	if req.Email != "" {
		order.BuyerEmail = &req.Email
	}

	err = f.store.Atomic(ctx, func(tx TxStore) error {
		if promo != nil {
			p, err := promotion.NewChecker(tx, f.now).Check(ctx, promo.ID, who)
			if err != nil {
				return err
			}
			discount := promotion.Evaluate(p, subtotal)
			order.DiscountAmount = discount
			order.TotalAmount = promotion.FinalTotal(subtotal, discount)
			order.PromoCode = &p.Code
		}

		if err := tx.CreateOrder(ctx, &order); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errLostRace
			}
			return err
		}
		if err := tx.CreateTickets(ctx, order.ID, req.Seats, req.PricePerSeat); err != nil {
			return err
		}
		if f.caps.SeatHolds {
			if err := tx.ReleaseHolds(ctx, req.ShowtimeID, req.Seats); err != nil {
				f.lg.Warn("Release seat holds failed", zap.Error(err), zap.String("ref_code", req.RefCode))
			}
		}
		if promo != nil {
			red := model.PromotionRedemption{PromotionID: promo.ID, OrderID: order.ID, UserID: who.UserID}
			if who.Email != "" {
				red.Email = &who.Email
			}
			if err := tx.CreateRedemption(ctx, &red); err != nil {
				return err
			}
		}
		return nil
	})
	var ie *promotion.IneligibleError
	switch {
	case errors.Is(err, errLostRace):
		return f.concurrentOrder(ctx, req.RefCode)
	case errors.As(err, &ie):
		// A concurrent checkout of this ref code may have committed its
		// redemption while we waited for the promotion row lock.
		if res, rerr := f.concurrentOrder(ctx, req.RefCode); rerr == nil {
			return res, nil
		}
		return Result{}, err
	case err != nil:
		return Result{}, err
	}

	res := Result{OrderID: order.ID}
	detail, err := f.store.OrderDetail(ctx, order.ID)
	if err != nil {
		f.lg.Warn("Load order detail failed", zap.Error(err), zap.Uint64("order_id", order.ID))
		return res, nil
	}
	res.EmailSent = f.sendTicket(ctx, detail)
	f.publish(ctx, detail, res.EmailSent)
	return res, nil
}

func (f *Finalizer) concurrentOrder(ctx context.Context, ref string) (Result, error) {
	winner, err := f.store.OrderByRef(ctx, ref)
	if err != nil {
		return Result{}, errors.Wrap(err, "read concurrent order")
	}
	return Result{OrderID: winner.ID, Existing: true}, nil
}

func (f *Finalizer) validate(ctx context.Context, req Request) (Request, error) {
	req.RefCode = strings.TrimSpace(req.RefCode)
	if req.RefCode == "" {
		return req, invalid("Missing refCode")
	}
	if req.ShowtimeID == 0 {
		return req, invalid("Missing/invalid showtimeId")
	}
	seats := make([]string, 0, len(req.Seats))
	for _, s := range req.Seats {
		if s = strings.TrimSpace(s); s != "" {
			seats = append(seats, s)
		}
	}
	if len(seats) == 0 {
		return req, invalid("Seats array is empty")
	}
	req.Seats = seats
	if !req.PricePerSeat.IsPositive() {
		return req, invalid("pricePerSeat is invalid")
	}

	req.Email = repository.NormalizeEmail(req.Email)
	req.PromoCode = repository.NormalizeCode(req.PromoCode)
	if req.PromoCode != "" && !f.caps.Promotions {
		f.lg.Info("Promotions not enabled, ignoring code", zap.String("ref_code", req.RefCode), zap.String("code", req.PromoCode))
		req.PromoCode = ""
	}

	ok, err := f.store.ShowtimeExists(ctx, req.ShowtimeID)
	if err != nil {
		return req, errors.Wrap(err, "lookup showtime")
	}
	if !ok {
		return req, invalid("Showtime not found (id: %d)", req.ShowtimeID)
	}
	return req, nil
}

func (f *Finalizer) sendTicket(ctx context.Context, d repository.OrderDetail) bool {
	if f.mailer == nil {
		return false
	}
	t := notify.TicketFromOrder(d)
	if t.Recipient == "" {
		f.lg.Info("No email recipient for order", zap.String("ref_code", d.Order.RefCode))
		return false
	}
	if err := f.mailer.SendTicket(ctx, t); err != nil {
		f.lg.Warn("Send ticket email failed", zap.Error(err), zap.String("ref_code", d.Order.RefCode))
		return false
	}
	return true
}

func (f *Finalizer) publish(ctx context.Context, d repository.OrderDetail, emailSent bool) {
	if f.events == nil {
		return
	}
	ev := queue.OrderPaidEvent{
		OrderID:        d.Order.ID,
		RefCode:        d.Order.RefCode,
		ShowtimeID:     d.Order.ShowtimeID,
		UserID:         d.Order.UserID,
		BuyerEmail:     d.Recipient(),
		Seats:          d.SeatLabels(),
		TotalAmount:    d.Order.TotalAmount,
		DiscountAmount: d.Order.DiscountAmount,
		EmailSent:      emailSent,
		PaidAt:         f.now().UTC().Format(time.RFC3339),
	}
	if d.Order.PromoCode != nil {
		ev.PromoCode = *d.Order.PromoCode
	}
	if d.Order.PaidAt != nil {
		ev.PaidAt = d.Order.PaidAt.UTC().Format(time.RFC3339)
	}
	if err := f.events.PublishOrderPaid(ctx, ev); err != nil {
		f.lg.Warn("Publish order event failed", zap.Error(err), zap.String("ref_code", ev.RefCode))
	}
}
