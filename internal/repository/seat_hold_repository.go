package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table. All expiry
// comparisons happen in SQL against UTC_TIMESTAMP().
type SeatHoldRepo struct{ db DBTX }

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided handle.
func NewSeatHoldRepo(db DBTX) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// WithTx returns a repository bound to tx.
func (r *SeatHoldRepo) WithTx(tx *sql.Tx) *SeatHoldRepo { return &SeatHoldRepo{db: tx} }

// ExpireHolds removes holds for the showtime whose expiry has passed and
// returns how many were removed.
func (r *SeatHoldRepo) ExpireHolds(ctx context.Context, showtimeID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE showtime_id = ? AND expires_at <= UTC_TIMESTAMP()`, showtimeID)
	if err != nil {
		return 0, errors.Wrap(err, "expire holds")
	}
	return res.RowsAffected()
}

// HeldSeats returns the labels of unexpired holds on a showtime.
func (r *SeatHoldRepo) HeldSeats(ctx context.Context, showtimeID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_label FROM seat_holds
		 WHERE showtime_id = ? AND expires_at > UTC_TIMESTAMP() ORDER BY seat_label`, showtimeID)
	if err != nil {
		return nil, errors.Wrap(err, "query held seats")
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

// CreateMultiple inserts holds with one multi-row statement. A seat that
// is already held yields ErrConflict. Passing an empty slice has no
// effect.
func (r *SeatHoldRepo) CreateMultiple(ctx context.Context, holds []model.SeatHold) error {
	if len(holds) == 0 {
		return nil
	}
	query := `INSERT INTO seat_holds (showtime_id, seat_label, hold_token, holder_email, expires_at) VALUES `
	args := make([]any, 0, len(holds)*5)
	for i, h := range holds {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, h.ShowtimeID, h.SeatLabel, h.HoldToken, nullString(h.HolderEmail), h.ExpiresAt.UTC())
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "insert holds")
	}
	return nil
}

// DeleteByToken releases every seat held under token and returns how many
// holds were removed.
func (r *SeatHoldRepo) DeleteByToken(ctx context.Context, showtimeID uint64, token string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE showtime_id = ? AND hold_token = ?`, showtimeID, token)
	if err != nil {
		return 0, errors.Wrap(err, "release holds")
	}
	return res.RowsAffected()
}

// DeleteSeats releases holds on the given seats of a showtime regardless
// of who placed them. Used when the seats are sold.
func (r *SeatHoldRepo) DeleteSeats(ctx context.Context, showtimeID uint64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	args := make([]any, 0, len(seats)+1)
	args = append(args, showtimeID)
	for _, s := range seats {
		args = append(args, s)
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE showtime_id = ? AND seat_label IN (`+placeholders(len(seats))+`)`, args...)
	return errors.Wrap(err, "delete seat holds")
}

// NewHolds builds hold records sharing one token for the given seats.
func NewHolds(showtimeID uint64, seats []string, token string, email *string, expiresAt time.Time) []model.SeatHold {
	holds := make([]model.SeatHold, 0, len(seats))
	for _, s := range seats {
		holds = append(holds, model.SeatHold{
			ShowtimeID:  showtimeID,
			SeatLabel:   s,
			HoldToken:   token,
			HolderEmail: email,
			ExpiresAt:   expiresAt,
		})
	}
	return holds
}
