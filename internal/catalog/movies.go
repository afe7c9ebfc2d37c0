// Package catalog manages movies, showtimes and temporary seat holds.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// InvalidError rejects malformed input.
type InvalidError struct{ Msg string }

func (e *InvalidError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &InvalidError{Msg: fmt.Sprintf(format, args...)}
}

// Public listing limits.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Ensure defaults.
const (
	DefaultTheater     = "Theater 1"
	DefaultDurationMin = 120
)

// DefaultBasePrice applies when ensure omits a price.
var DefaultBasePrice = decimal.NewFromInt(120)

type MovieStore interface {
	List(ctx context.Context, f repository.MovieFilter) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	GetByTitle(ctx context.Context, title string) (model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	Update(ctx context.Context, id uint64, p repository.MoviePatch) (model.Movie, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	Toggle(ctx context.Context, id uint64) (model.Movie, error)
}

type ShowtimeStore interface {
	GetByMovieAndStart(ctx context.Context, movieID uint64, startsAt time.Time) (model.Showtime, error)
	Create(ctx context.Context, s *model.Showtime) error
}

// Service implements the movie catalog and showtime ensure.
type Service struct {
	movies    MovieStore
	showtimes ShowtimeStore
}

func NewService(movies MovieStore, showtimes ShowtimeStore) *Service {
	return &Service{movies: movies, showtimes: showtimes}
}

// ClampLimit maps a requested page size onto [1, MaxLimit]; zero means
// DefaultLimit.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultLimit
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// PublicMovies lists movies for browsing. Limit is clamped.
func (s *Service) PublicMovies(ctx context.Context, activeOnly bool, query string, limit int) ([]model.Movie, error) {
	return s.movies.List(ctx, repository.MovieFilter{
		ActiveOnly: activeOnly,
		Query:      query,
		Limit:      ClampLimit(limit),
	})
}

// AllMovies lists every movie for administration.
func (s *Service) AllMovies(ctx context.Context) ([]model.Movie, error) {
	return s.movies.List(ctx, repository.MovieFilter{})
}

// MovieInput creates a movie.
type MovieInput struct {
	Title       string
	DurationMin int
	Rating      *string
	PosterURL   *string
	Overview    *string
	Active      *bool
}

func (s *Service) CreateMovie(ctx context.Context, in MovieInput) (model.Movie, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Movie{}, invalid("Missing title")
	}
	if in.DurationMin <= 0 {
		return model.Movie{}, invalid("durationMin is invalid")
	}
	m := model.Movie{
		Title:       title,
		DurationMin: in.DurationMin,
		Rating:      blankToNil(in.Rating),
		PosterURL:   blankToNil(in.PosterURL),
		Overview:    blankToNil(in.Overview),
		Active:      in.Active == nil || *in.Active,
	}
	if err := s.movies.Create(ctx, &m); err != nil {
		return model.Movie{}, err
	}
	return m, nil
}

// UpdateMovie applies a partial update.
func (s *Service) UpdateMovie(ctx context.Context, id uint64, p repository.MoviePatch) (model.Movie, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return model.Movie{}, invalid("Missing title")
	}
	if p.DurationMin != nil && *p.DurationMin <= 0 {
		return model.Movie{}, invalid("durationMin is invalid")
	}
	return s.movies.Update(ctx, id, p)
}

// DeleteMovie soft-deletes a movie.
func (s *Service) DeleteMovie(ctx context.Context, id uint64) error {
	return s.movies.SetActive(ctx, id, false)
}

func (s *Service) ToggleMovie(ctx context.Context, id uint64) (model.Movie, error) {
	return s.movies.Toggle(ctx, id)
}

// EnsureInput identifies a showtime by movie title and start time.
type EnsureInput struct {
	Title       string
	StartsAt    time.Time
	Theater     string
	BasePrice   decimal.NullDecimal
	DurationMin *int
}

// EnsureShowtime finds or creates the movie by title and then the
// showtime by (movie, start). A concurrent insert of the same showtime is
// resolved by reading the winner.
func (s *Service) EnsureShowtime(ctx context.Context, in EnsureInput) (model.Showtime, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Showtime{}, invalid("Missing title")
	}
	if in.StartsAt.IsZero() {
		return model.Showtime{}, invalid("Missing startsAt")
	}
	dur := DefaultDurationMin
	if in.DurationMin != nil {
		dur = *in.DurationMin
	}
	if dur <= 0 {
		return model.Showtime{}, invalid("durationMin is invalid")
	}

	movie, err := s.movies.GetByTitle(ctx, title)
	if errors.Is(err, repository.ErrNotFound) {
		movie = model.Movie{Title: title, DurationMin: dur, Active: true}
		err = s.movies.Create(ctx, &movie)
	}
	if err != nil {
		return model.Showtime{}, errors.Wrap(err, "ensure movie")
	}

	starts := in.StartsAt.UTC().Truncate(time.Second)
	show, err := s.showtimes.GetByMovieAndStart(ctx, movie.ID, starts)
	if err == nil {
		return show, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Showtime{}, errors.Wrap(err, "lookup showtime")
	}

	show = model.Showtime{
		MovieID:   movie.ID,
		Theater:   strings.TrimSpace(in.Theater),
		StartsAt:  starts,
		BasePrice: DefaultBasePrice,
	}
	if show.Theater == "" {
		show.Theater = DefaultTheater
	}
	if in.BasePrice.Valid {
		show.BasePrice = in.BasePrice.Decimal
	}
	err = s.showtimes.Create(ctx, &show)
	if errors.Is(err, repository.ErrConflict) {
		return s.showtimes.GetByMovieAndStart(ctx, movie.ID, starts)
	}
	if err != nil {
		return model.Showtime{}, err
	}
	return show, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	if v := strings.TrimSpace(*s); v != "" {
		return &v
	}
	return nil
}
