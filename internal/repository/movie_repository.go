package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// MovieFilter narrows a movie listing. Limit <= 0 means no limit.
type MovieFilter struct {
	ActiveOnly bool
	Query      string // case-insensitive contains-match on title or rating
	Limit      int
}

// MoviePatch carries a partial update. Nil fields are left untouched; for
// the optional text columns an empty string clears the column.
type MoviePatch struct {
	Title       *string
	DurationMin *int
	Rating      *string
	PosterURL   *string
	Overview    *string
	Active      *bool
}

// MovieRepo manages persistence for movies.
type MovieRepo struct{ db DBTX }

func NewMovieRepo(db DBTX) *MovieRepo { return &MovieRepo{db: db} }

// WithTx returns a repository bound to tx.
func (r *MovieRepo) WithTx(tx *sql.Tx) *MovieRepo { return &MovieRepo{db: tx} }

const movieColumns = "id,title,duration_min,rating,poster_url,overview,active,created_at"

// List returns movies newest first, with id descending as tiebreak.
func (r *MovieRepo) List(ctx context.Context, f MovieFilter) ([]model.Movie, error) {
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "active = 1")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + likeEscape(strings.ToLower(q)) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(COALESCE(rating,'')) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	query := "SELECT " + movieColumns + " FROM movies"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query movies")
	}
	defer rows.Close()

	movies := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetByID fetches one movie.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	return scanMovie(r.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE id=? LIMIT 1", id))
}

// GetByTitle returns the oldest movie with exactly this title.
func (r *MovieRepo) GetByTitle(ctx context.Context, title string) (model.Movie, error) {
	return scanMovie(r.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE title=? ORDER BY id LIMIT 1", title))
}

// Create inserts m and fills in its ID and created_at.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO movies (title, duration_min, rating, poster_url, overview, active) VALUES (?,?,?,?,?,?)",
		m.Title, m.DurationMin, nullString(m.Rating), nullString(m.PosterURL), nullString(m.Overview), m.Active)
	if err != nil {
		return errors.Wrap(err, "insert movie")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = created
	return nil
}

// Update applies p to the movie and returns the stored row.
func (r *MovieRepo) Update(ctx context.Context, id uint64, p MoviePatch) (model.Movie, error) {
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, strings.TrimSpace(*p.Title))
	}
	if p.DurationMin != nil {
		sets = append(sets, "duration_min=?")
		args = append(args, *p.DurationMin)
	}
	for _, col := range []struct {
		name string
		val  *string
	}{{"rating", p.Rating}, {"poster_url", p.PosterURL}, {"overview", p.Overview}} {
		if col.val == nil {
			continue
		}
		sets = append(sets, col.name+"=?")
		if *col.val == "" {
			args = append(args, nil)
		} else {
			args = append(args, *col.val)
		}
	}
	if p.Active != nil {
		sets = append(sets, "active=?")
		args = append(args, *p.Active)
	}

	if len(sets) > 0 {
		args = append(args, id)
		// MySQL reports 0 affected rows for unchanged values, so existence
		// is confirmed by the read below.
		if _, err := r.db.ExecContext(ctx,
			"UPDATE movies SET "+strings.Join(sets, ",")+" WHERE id=?", args...); err != nil {
			return model.Movie{}, errors.Wrap(err, "update movie")
		}
	}
	return r.GetByID(ctx, id)
}

// SetActive sets the active flag.
func (r *MovieRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE movies SET active=? WHERE id=?", active, id)
	return errors.Wrap(err, "set movie active")
}

// Toggle flips the active flag and returns the updated movie.
func (r *MovieRepo) Toggle(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Movie{}, err
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE movies SET active=? WHERE id=?", !m.Active, id); err != nil {
		return model.Movie{}, errors.Wrap(err, "toggle movie")
	}
	m.Active = !m.Active
	return m, nil
}

func scanMovie(s rowScanner) (model.Movie, error) {
	var (
		m                        model.Movie
		rating, poster, overview sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Title, &m.DurationMin, &rating, &poster, &overview, &m.Active, &m.CreatedAt); err != nil {
		return model.Movie{}, noRows(err)
	}
	m.Rating = stringPtr(rating)
	m.PosterURL = stringPtr(poster)
	m.Overview = stringPtr(overview)
	return m, nil
}
