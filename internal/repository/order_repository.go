package repository

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// OrderRepo provides persistence for orders and their tickets. All
// timestamps are stored in UTC.
type OrderRepo struct{ db DBTX }

// NewOrderRepo returns a new OrderRepo bound to the given handle.
func NewOrderRepo(db DBTX) *OrderRepo { return &OrderRepo{db: db} }

// WithTx returns a repository bound to tx.
func (r *OrderRepo) WithTx(tx *sql.Tx) *OrderRepo { return &OrderRepo{db: tx} }

// OrderDetail is an order joined with its showtime, movie, tickets and
// the email of the owning user (when any).
type OrderDetail struct {
	Order     model.Order
	Showtime  model.Showtime
	Movie     model.Movie
	UserEmail *string
	Tickets   []model.Ticket
}

// Recipient returns the address ticket emails go to: the buyer email,
// falling back to the owning user's email.
func (d OrderDetail) Recipient() string {
	if d.Order.BuyerEmail != nil && *d.Order.BuyerEmail != "" {
		return *d.Order.BuyerEmail
	}
	if d.UserEmail != nil {
		return *d.UserEmail
	}
	return ""
}

// SeatLabels lists the seats of the order in ticket order.
func (d OrderDetail) SeatLabels() []string {
	out := make([]string, 0, len(d.Tickets))
	for _, t := range d.Tickets {
		out = append(out, t.SeatLabel)
	}
	return out
}

const orderColumns = "o.id,o.ref_code,o.showtime_id,o.user_id,o.buyer_email,o.status,o.total_amount,o.promo_code,o.discount_amount,o.created_at,o.paid_at"

// GetByRef fetches the order with the given reference code.
func (r *OrderRepo) GetByRef(ctx context.Context, ref string) (model.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.ref_code=? LIMIT 1", ref))
}

// Create inserts o and sets its ID. A reference code that already exists
// yields ErrConflict.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders
		(ref_code, showtime_id, user_id, buyer_email, status, total_amount, promo_code, discount_amount, paid_at)
		VALUES (?,?,?,?,?,?,?,?,?)`
	var paidAt sql.NullTime
	if o.PaidAt != nil {
		paidAt = sql.NullTime{Time: o.PaidAt.UTC(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q,
		o.RefCode, o.ShowtimeID, nullUint(o.UserID), nullString(o.BuyerEmail), o.Status,
		o.TotalAmount, nullString(o.PromoCode), o.DiscountAmount, paidAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "insert order")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// CreateTickets inserts one ticket per seat with a single multi-row
// statement. Passing no seats has no effect.
func (r *OrderRepo) CreateTickets(ctx context.Context, orderID uint64, seats []string, price decimal.Decimal) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (order_id, seat_label, price) VALUES `
	args := make([]any, 0, len(seats)*3)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, orderID, seat, price)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "insert tickets")
}

// SoldSeats returns the seat labels already sold for a showtime.
func (r *OrderRepo) SoldSeats(ctx context.Context, showtimeID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.seat_label FROM tickets t JOIN orders o ON o.id = t.order_id
		 WHERE o.showtime_id = ? ORDER BY t.seat_label`, showtimeID)
	if err != nil {
		return nil, errors.Wrap(err, "query sold seats")
	}
	defer rows.Close()
	seats := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

const detailQuery = `SELECT ` + orderColumns + `,
		s.id, s.movie_id, s.theater, s.starts_at, s.base_price, s.created_at,
		m.id, m.title, m.duration_min, m.rating, u.email
	FROM orders o
	JOIN showtimes s ON s.id = o.showtime_id
	JOIN movies m ON m.id = s.movie_id
	LEFT JOIN users u ON u.id = o.user_id`

// GetDetail loads one order with its showtime, movie and tickets.
func (r *OrderRepo) GetDetail(ctx context.Context, orderID uint64) (OrderDetail, error) {
	details, err := r.queryDetails(ctx, detailQuery+" WHERE o.id = ?", orderID)
	if err != nil {
		return OrderDetail{}, err
	}
	if len(details) == 0 {
		return OrderDetail{}, ErrNotFound
	}
	return details[0], nil
}

// ListByEmail returns the orders bought with this email or owned by the
// user registered under it, newest first.
func (r *OrderRepo) ListByEmail(ctx context.Context, email string) ([]OrderDetail, error) {
	email = NormalizeEmail(email)
	return r.queryDetails(ctx,
		detailQuery+" WHERE o.buyer_email = ? OR u.email = ? ORDER BY o.created_at DESC, o.id DESC",
		email, email)
}

func (r *OrderRepo) queryDetails(ctx context.Context, query string, args ...any) ([]OrderDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	details := []OrderDetail{}
	index := map[uint64]int{}
	for rows.Next() {
		var (
			d         OrderDetail
			userID    sql.NullInt64
			buyer     sql.NullString
			promo     sql.NullString
			paidAt    sql.NullTime
			rating    sql.NullString
			userEmail sql.NullString
		)
		if err := rows.Scan(
			&d.Order.ID, &d.Order.RefCode, &d.Order.ShowtimeID, &userID, &buyer, &d.Order.Status,
			&d.Order.TotalAmount, &promo, &d.Order.DiscountAmount, &d.Order.CreatedAt, &paidAt,
			&d.Showtime.ID, &d.Showtime.MovieID, &d.Showtime.Theater, &d.Showtime.StartsAt, &d.Showtime.BasePrice, &d.Showtime.CreatedAt,
			&d.Movie.ID, &d.Movie.Title, &d.Movie.DurationMin, &rating, &userEmail,
		); err != nil {
			rows.Close()
			return nil, err
		}
		d.Order.UserID = uintPtr(userID)
		d.Order.BuyerEmail = stringPtr(buyer)
		d.Order.PromoCode = stringPtr(promo)
		d.Order.PaidAt = timePtr(paidAt)
		d.Movie.Rating = stringPtr(rating)
		d.UserEmail = stringPtr(userEmail)
		d.Tickets = []model.Ticket{}
		index[d.Order.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]any, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.Order.ID)
	}
	trows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, seat_label, price, created_at FROM tickets WHERE order_id IN ("+placeholders(len(ids))+") ORDER BY id",
		ids...)
	if err != nil {
		return nil, errors.Wrap(err, "query tickets")
	}
	defer trows.Close()
	for trows.Next() {
		var t model.Ticket
		if err := trows.Scan(&t.ID, &t.OrderID, &t.SeatLabel, &t.Price, &t.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[t.OrderID]; ok {
			details[i].Tickets = append(details[i].Tickets, t)
		}
	}
	return details, trows.Err()
}

func scanOrder(s rowScanner) (model.Order, error) {
	var (
		o      model.Order
		userID sql.NullInt64
		buyer  sql.NullString
		promo  sql.NullString
		paidAt sql.NullTime
	)
	if err := s.Scan(&o.ID, &o.RefCode, &o.ShowtimeID, &userID, &buyer, &o.Status,
		&o.TotalAmount, &promo, &o.DiscountAmount, &o.CreatedAt, &paidAt); err != nil {
		return model.Order{}, noRows(err)
	}
	o.UserID = uintPtr(userID)
	o.BuyerEmail = stringPtr(buyer)
	o.PromoCode = stringPtr(promo)
	o.PaidAt = timePtr(paidAt)
	return o, nil
}
