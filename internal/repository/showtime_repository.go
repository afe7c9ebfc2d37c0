package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct{ db DBTX }

func NewShowtimeRepo(db DBTX) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// WithTx returns a repository bound to tx.
func (r *ShowtimeRepo) WithTx(tx *sql.Tx) *ShowtimeRepo { return &ShowtimeRepo{db: tx} }

const showtimeColumns = "id,movie_id,theater,starts_at,base_price,created_at"

// GetByID fetches a showtime.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (model.Showtime, error) {
	return scanShowtime(r.db.QueryRowContext(ctx,
		"SELECT "+showtimeColumns+" FROM showtimes WHERE id=? LIMIT 1", id))
}

// Exists reports whether a showtime with id exists.
func (r *ShowtimeRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM showtimes WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "query showtime")
	}
	return true, nil
}

// GetByMovieAndStart looks a showtime up by its natural key.
func (r *ShowtimeRepo) GetByMovieAndStart(ctx context.Context, movieID uint64, startsAt time.Time) (model.Showtime, error) {
	return scanShowtime(r.db.QueryRowContext(ctx,
		"SELECT "+showtimeColumns+" FROM showtimes WHERE movie_id=? AND starts_at=? LIMIT 1",
		movieID, startsAt.UTC()))
}

// Create inserts s. A duplicate (movie, start) yields ErrConflict.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO showtimes (movie_id, theater, starts_at, base_price) VALUES (?,?,?,?)",
		s.MovieID, s.Theater, s.StartsAt.UTC(), s.BasePrice)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "insert showtime")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func scanShowtime(s rowScanner) (model.Showtime, error) {
	var st model.Showtime
	if err := s.Scan(&st.ID, &st.MovieID, &st.Theater, &st.StartsAt, &st.BasePrice, &st.CreatedAt); err != nil {
		return model.Showtime{}, noRows(err)
	}
	return st, nil
}
