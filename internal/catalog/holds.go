package catalog

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// HoldTTL is how long placed holds last.
const HoldTTL = 5 * time.Minute

var (
	ErrHoldsDisabled    = errors.New("Seat holds not enabled")
	ErrShowtimeNotFound = errors.New("Showtime not found")
	ErrHoldNotFound     = errors.New("Hold not found")
)

// UnavailableError lists requested seats that are sold or held.
type UnavailableError struct{ Seats []string }

func (e *UnavailableError) Error() string {
	return "Seats unavailable: " + strings.Join(e.Seats, ", ")
}

// HoldStore is the persistence behind seat holds.
type HoldStore interface {
	ShowtimeExists(ctx context.Context, id uint64) (bool, error)
	SoldSeats(ctx context.Context, showtimeID uint64) ([]string, error)
	ExpireHolds(ctx context.Context, showtimeID uint64) (int64, error)
	HeldSeats(ctx context.Context, showtimeID uint64) ([]string, error)
	CreateMultiple(ctx context.Context, holds []model.SeatHold) error
	DeleteByToken(ctx context.Context, showtimeID uint64, token string) (int64, error)
}

// Hold is a group of seats held under one token.
type Hold struct {
	Token      string
	ShowtimeID uint64
	Seats      []string
	ExpiresAt  time.Time
}

// SeatMap lists the seats of a showtime that cannot be picked.
type SeatMap struct {
	Sold []string
	Held []string
}

// Holds places and releases temporary seat holds. When enabled is false
// (no seat_holds table) Place and Release fail with ErrHoldsDisabled and
// SeatMap reports sold seats only.
type Holds struct {
	store   HoldStore
	enabled bool
	now     func() time.Time
}

func NewHolds(store HoldStore, enabled bool) *Holds {
	return &Holds{store: store, enabled: enabled, now: time.Now}
}

func (h *Holds) Enabled() bool { return h.enabled }

// Place holds seats for HoldTTL. Expired holds on the showtime are purged
// first; any seat already sold or held fails the whole request with an
// *UnavailableError.
func (h *Holds) Place(ctx context.Context, showtimeID uint64, seats []string, email string) (Hold, error) {
	if !h.enabled {
		return Hold{}, ErrHoldsDisabled
	}
	seats = cleanSeats(seats)
	if len(seats) == 0 {
		return Hold{}, invalid("Seats array is empty")
	}
	if err := h.requireShowtime(ctx, showtimeID); err != nil {
		return Hold{}, err
	}
	if _, err := h.store.ExpireHolds(ctx, showtimeID); err != nil {
		return Hold{}, err
	}

	taken, err := h.taken(ctx, showtimeID)
	if err != nil {
		return Hold{}, err
	}
	if clash := intersect(seats, taken); len(clash) > 0 {
		return Hold{}, &UnavailableError{Seats: clash}
	}

	hold := Hold{
		Token:      uuid.NewString(),
		ShowtimeID: showtimeID,
		Seats:      seats,
		ExpiresAt:  h.now().UTC().Add(HoldTTL).Truncate(time.Second),
	}
	var holder *string
	if e := repository.NormalizeEmail(email); e != "" {
		holder = &e
	}
	err = h.store.CreateMultiple(ctx, repository.NewHolds(showtimeID, seats, hold.Token, holder, hold.ExpiresAt))
	if errors.Is(err, repository.ErrConflict) {
		// Lost a race for at least one seat.
		held, herr := h.store.HeldSeats(ctx, showtimeID)
		if herr != nil {
			return Hold{}, herr
		}
		clash := intersect(seats, held)
		if len(clash) == 0 {
			clash = seats
		}
		return Hold{}, &UnavailableError{Seats: clash}
	}
	if err != nil {
		return Hold{}, err
	}
	return hold, nil
}

// Release drops every seat held under token.
func (h *Holds) Release(ctx context.Context, showtimeID uint64, token string) error {
	if !h.enabled {
		return ErrHoldsDisabled
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrHoldNotFound
	}
	n, err := h.store.DeleteByToken(ctx, showtimeID, token)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHoldNotFound
	}
	return nil
}

// SeatMap reports sold and currently held seats.
func (h *Holds) SeatMap(ctx context.Context, showtimeID uint64) (SeatMap, error) {
	if err := h.requireShowtime(ctx, showtimeID); err != nil {
		return SeatMap{}, err
	}
	sold, err := h.store.SoldSeats(ctx, showtimeID)
	if err != nil {
		return SeatMap{}, err
	}
	m := SeatMap{Sold: sold, Held: []string{}}
	if h.enabled {
		if m.Held, err = h.store.HeldSeats(ctx, showtimeID); err != nil {
			return SeatMap{}, err
		}
	}
	return m, nil
}

func (h *Holds) requireShowtime(ctx context.Context, id uint64) error {
	ok, err := h.store.ShowtimeExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrShowtimeNotFound
	}
	return nil
}

func (h *Holds) taken(ctx context.Context, showtimeID uint64) ([]string, error) {
	sold, err := h.store.SoldSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	held, err := h.store.HeldSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	return append(sold, held...), nil
}

// cleanSeats trims, upper-cases and de-duplicates seat labels, keeping
// first-seen order.
func cleanSeats(seats []string) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// intersect returns the labels of want present in taken, ignoring case.
// Sold tickets keep the case checkout received them in.
func intersect(want, taken []string) []string {
	var out []string
	for _, s := range want {
		if slices.ContainsFunc(taken, func(t string) bool { return strings.EqualFold(t, s) }) {
			out = append(out, s)
		}
	}
	return out
}

// SQLHoldStore adapts the repositories to HoldStore.
type SQLHoldStore struct {
	Holds     *repository.SeatHoldRepo
	Orders    *repository.OrderRepo
	Showtimes *repository.ShowtimeRepo
}

func (s SQLHoldStore) ShowtimeExists(ctx context.Context, id uint64) (bool, error) {
	return s.Showtimes.Exists(ctx, id)
}

func (s SQLHoldStore) SoldSeats(ctx context.Context, showtimeID uint64) ([]string, error) {
	return s.Orders.SoldSeats(ctx, showtimeID)
}

func (s SQLHoldStore) ExpireHolds(ctx context.Context, showtimeID uint64) (int64, error) {
	return s.Holds.ExpireHolds(ctx, showtimeID)
}

func (s SQLHoldStore) HeldSeats(ctx context.Context, showtimeID uint64) ([]string, error) {
	return s.Holds.HeldSeats(ctx, showtimeID)
}

func (s SQLHoldStore) CreateMultiple(ctx context.Context, holds []model.SeatHold) error {
	return s.Holds.CreateMultiple(ctx, holds)
}

func (s SQLHoldStore) DeleteByToken(ctx context.Context, showtimeID uint64, token string) (int64, error) {
	return s.Holds.DeleteByToken(ctx, showtimeID, token)
}
