package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

type memMovies struct {
	list     []model.Movie
	lastList repository.MovieFilter
}

func (m *memMovies) List(_ context.Context, f repository.MovieFilter) ([]model.Movie, error) {
	m.lastList = f
	return m.list, nil
}

func (m *memMovies) GetByID(_ context.Context, id uint64) (model.Movie, error) {
	for _, mv := range m.list {
		if mv.ID == id {
			return mv, nil
		}
	}
	return model.Movie{}, repository.ErrNotFound
}

func (m *memMovies) GetByTitle(_ context.Context, title string) (model.Movie, error) {
	for _, mv := range m.list {
		if mv.Title == title {
			return mv, nil
		}
	}
	return model.Movie{}, repository.ErrNotFound
}

func (m *memMovies) Create(_ context.Context, mv *model.Movie) error {
	mv.ID = uint64(len(m.list) + 1)
	m.list = append(m.list, *mv)
	return nil
}

func (m *memMovies) Update(ctx context.Context, id uint64, _ repository.MoviePatch) (model.Movie, error) {
	return m.GetByID(ctx, id)
}

func (m *memMovies) SetActive(_ context.Context, id uint64, active bool) error {
	for i := range m.list {
		if m.list[i].ID == id {
			m.list[i].Active = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memMovies) Toggle(ctx context.Context, id uint64) (model.Movie, error) {
	mv, err := m.GetByID(ctx, id)
	if err != nil {
		return mv, err
	}
	_ = m.SetActive(ctx, id, !mv.Active)
	return m.GetByID(ctx, id)
}

type memShowtimes struct {
	rows []model.Showtime
	// conflictOnce makes the next Create fail as if another request won.
	conflictOnce *model.Showtime
}

func (m *memShowtimes) GetByMovieAndStart(_ context.Context, movieID uint64, at time.Time) (model.Showtime, error) {
	for _, s := range m.rows {
		if s.MovieID == movieID && s.StartsAt.Equal(at) {
			return s, nil
		}
	}
	return model.Showtime{}, repository.ErrNotFound
}

func (m *memShowtimes) Create(_ context.Context, s *model.Showtime) error {
	if m.conflictOnce != nil {
		m.rows = append(m.rows, *m.conflictOnce)
		m.conflictOnce = nil
		return repository.ErrConflict
	}
	s.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, *s)
	return nil
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: 50, -3: 1, 1: 1, 100: 100, 101: 100, 20: 20} {
		assert.Equal(t, want, ClampLimit(in), in)
	}
}

func TestPublicMovies_PassesFilter(t *testing.T) {
	movies := &memMovies{}
	svc := NewService(movies, &memShowtimes{})
	_, err := svc.PublicMovies(context.Background(), true, "dune", 500)
	require.NoError(t, err)
	assert.Equal(t, repository.MovieFilter{ActiveOnly: true, Query: "dune", Limit: 100}, movies.lastList)
}

func TestCreateMovie(t *testing.T) {
	svc := NewService(&memMovies{}, &memShowtimes{})
	ctx := context.Background()
	blank := "  "
	off := false

	m, err := svc.CreateMovie(ctx, MovieInput{Title: " Dune ", DurationMin: 155, Rating: &blank, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, "Dune", m.Title)
	assert.Nil(t, m.Rating)
	assert.False(t, m.Active)

	var ie *InvalidError
	_, err = svc.CreateMovie(ctx, MovieInput{Title: "", DurationMin: 100})
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Missing title", ie.Msg)
	_, err = svc.CreateMovie(ctx, MovieInput{Title: "X", DurationMin: 0})
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "durationMin is invalid", ie.Msg)
}

func TestDeleteAndToggleMovie(t *testing.T) {
	movies := &memMovies{list: []model.Movie{{ID: 1, Title: "A", Active: true}}}
	svc := NewService(movies, &memShowtimes{})
	ctx := context.Background()

	require.NoError(t, svc.DeleteMovie(ctx, 1))
	assert.False(t, movies.list[0].Active)

	m, err := svc.ToggleMovie(ctx, 1)
	require.NoError(t, err)
	assert.True(t, m.Active)

	_, err = svc.ToggleMovie(ctx, 9)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEnsureShowtime(t *testing.T) {
	movies, shows := &memMovies{}, &memShowtimes{}
	svc := NewService(movies, shows)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 13, 0, 0, 0, time.FixedZone("ICT", 7*3600))

	first, err := svc.EnsureShowtime(ctx, EnsureInput{Title: "Dune", StartsAt: at})
	require.NoError(t, err)
	require.Len(t, movies.list, 1)
	assert.Equal(t, DefaultDurationMin, movies.list[0].DurationMin)
	assert.Equal(t, DefaultTheater, first.Theater)
	assert.True(t, DefaultBasePrice.Equal(first.BasePrice))
	assert.Equal(t, time.UTC, first.StartsAt.Location())

	again, err := svc.EnsureShowtime(ctx, EnsureInput{Title: "Dune", StartsAt: at.UTC(), Theater: "Hall 9"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, movies.list, 1)
	assert.Len(t, shows.rows, 1)
}

func TestEnsureShowtime_ConcurrentInsert(t *testing.T) {
	at := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	movies := &memMovies{list: []model.Movie{{ID: 1, Title: "Dune"}}}
	shows := &memShowtimes{conflictOnce: &model.Showtime{ID: 77, MovieID: 1, StartsAt: at}}
	svc := NewService(movies, shows)

	got, err := svc.EnsureShowtime(context.Background(), EnsureInput{
		Title:     "Dune",
		StartsAt:  at,
		BasePrice: decimal.NewNullDecimal(decimal.NewFromInt(99)),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(77), got.ID)
}

func TestEnsureShowtime_Invalid(t *testing.T) {
	svc := NewService(&memMovies{}, &memShowtimes{})
	zero := 0
	tests := []struct {
		in  EnsureInput
		msg string
	}{
		{EnsureInput{StartsAt: time.Now()}, "Missing title"},
		{EnsureInput{Title: "A"}, "Missing startsAt"},
		{EnsureInput{Title: "A", StartsAt: time.Now(), DurationMin: &zero}, "durationMin is invalid"},
	}
	for _, tt := range tests {
		_, err := svc.EnsureShowtime(context.Background(), tt.in)
		var ie *InvalidError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, tt.msg, ie.Msg)
	}
}

type memHolds struct {
	showtimes map[uint64]bool
	sold      []string
	holds     []model.SeatHold
	now       time.Time
	expired   int
}

func (m *memHolds) ShowtimeExists(_ context.Context, id uint64) (bool, error) { return m.showtimes[id], nil }
func (m *memHolds) SoldSeats(context.Context, uint64) ([]string, error)      { return append([]string{}, m.sold...), nil }

func (m *memHolds) ExpireHolds(context.Context, uint64) (int64, error) {
	var keep []model.SeatHold
	for _, h := range m.holds {
		if h.ExpiresAt.After(m.now) {
			keep = append(keep, h)
		}
	}
	n := len(m.holds) - len(keep)
	m.holds = keep
	m.expired += n
	return int64(n), nil
}

func (m *memHolds) HeldSeats(context.Context, uint64) ([]string, error) {
	out := []string{}
	for _, h := range m.holds {
		if h.ExpiresAt.After(m.now) {
			out = append(out, h.SeatLabel)
		}
	}
	return out, nil
}

func (m *memHolds) CreateMultiple(_ context.Context, holds []model.SeatHold) error {
	m.holds = append(m.holds, holds...)
	return nil
}

func (m *memHolds) DeleteByToken(_ context.Context, _ uint64, token string) (int64, error) {
	var keep []model.SeatHold
	for _, h := range m.holds {
		if h.HoldToken != token {
			keep = append(keep, h)
		}
	}
	n := len(m.holds) - len(keep)
	m.holds = keep
	return int64(n), nil
}

func newHolds(store *memHolds) *Holds {
	h := NewHolds(store, true)
	h.now = func() time.Time { return store.now }
	return h
}

func TestHolds_PlaceAndRelease(t *testing.T) {
	store := &memHolds{showtimes: map[uint64]bool{1: true}, sold: []string{"A1"}, now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newHolds(store)
	ctx := context.Background()

	hold, err := h.Place(ctx, 1, []string{" b2", "B2", "b3"}, "X@Y.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "B3"}, hold.Seats)
	assert.Equal(t, store.now.Add(HoldTTL), hold.ExpiresAt)
	_, err = uuid.Parse(hold.Token)
	require.NoError(t, err)
	require.Len(t, store.holds, 2)
	require.NotNil(t, store.holds[0].HolderEmail)
	assert.Equal(t, "x@y.com", *store.holds[0].HolderEmail)

	_, err = h.Place(ctx, 1, []string{"A1", "B3", "C1"}, "")
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"A1", "B3"}, ue.Seats)
	assert.True(t, strings.HasPrefix(ue.Error(), "Seats unavailable"))

	sm, err := h.SeatMap(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, sm.Sold)
	assert.Equal(t, []string{"B2", "B3"}, sm.Held)

	require.NoError(t, h.Release(ctx, 1, hold.Token))
	assert.Empty(t, store.holds)
	require.ErrorIs(t, h.Release(ctx, 1, hold.Token), ErrHoldNotFound)
	require.ErrorIs(t, h.Release(ctx, 1, "not-a-uuid"), ErrHoldNotFound)
}

func TestHolds_SoldSeatsMatchAnyCase(t *testing.T) {
	tests := []struct {
		name string
		sold []string
		want []string
		gone []string
	}{
		{"lower sold, lower request", []string{"a1"}, []string{"a1"}, []string{"A1"}},
		{"lower sold, upper request", []string{"a1"}, []string{"A1", "B1"}, []string{"A1"}},
		{"upper sold, lower request", []string{"C4"}, []string{"c4"}, []string{"C4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memHolds{showtimes: map[uint64]bool{7: true}, sold: tt.sold}
			_, err := newHolds(store).Place(context.Background(), 7, tt.want, "")
			var ue *UnavailableError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.gone, ue.Seats)
			assert.Empty(t, store.holds)
		})
	}
}

func TestHolds_ExpiredHoldsArePurged(t *testing.T) {
	store := &memHolds{showtimes: map[uint64]bool{1: true}, now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newHolds(store)
	ctx := context.Background()

	_, err := h.Place(ctx, 1, []string{"A1"}, "")
	require.NoError(t, err)

	store.now = store.now.Add(HoldTTL + time.Second)
	_, err = h.Place(ctx, 1, []string{"A1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.expired)
}

func TestHolds_Errors(t *testing.T) {
	store := &memHolds{showtimes: map[uint64]bool{1: true}}
	ctx := context.Background()

	_, err := newHolds(store).Place(ctx, 2, []string{"A1"}, "")
	require.ErrorIs(t, err, ErrShowtimeNotFound)

	_, err = newHolds(store).Place(ctx, 1, []string{" "}, "")
	var ie *InvalidError
	require.ErrorAs(t, err, &ie)

	disabled := NewHolds(store, false)
	_, err = disabled.Place(ctx, 1, []string{"A1"}, "")
	require.ErrorIs(t, err, ErrHoldsDisabled)
	require.ErrorIs(t, disabled.Release(ctx, 1, uuid.NewString()), ErrHoldsDisabled)

	sm, err := disabled.SeatMap(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sm.Held)
}
