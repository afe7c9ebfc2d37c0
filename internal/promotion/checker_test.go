package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

type mockStore struct {
	promos     map[uint64]model.Promotion
	used       int
	usedBy     int
	countErr   error
	lastUserID *uint64
	lastEmail  string
	byCalls    int
}

func (m *mockStore) GetByID(_ context.Context, id uint64) (model.Promotion, error) {
	p, ok := m.promos[id]
	if !ok {
		return model.Promotion{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) GetByCode(_ context.Context, code string) (model.Promotion, error) {
	for _, p := range m.promos {
		if p.Code == code {
			return p, nil
		}
	}
	return model.Promotion{}, repository.ErrNotFound
}

func (m *mockStore) CountRedemptions(context.Context, uint64) (int, error) {
	return m.used, m.countErr
}

func (m *mockStore) CountRedemptionsBy(_ context.Context, _ uint64, userID *uint64, email string) (int, error) {
	m.byCalls++
	m.lastUserID = userID
	m.lastEmail = email
	return m.usedBy, m.countErr
}

func intp(v int) *int { return &v }

func TestChecker_Check(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	uid := uint64(7)

	tests := []struct {
		name   string
		promo  *model.Promotion
		used   int
		usedBy int
		who    Identity
		want   Reason
	}{
		{name: "missing promotion", want: ReasonNotFound},
		{name: "inactive", promo: &model.Promotion{Active: false}, want: ReasonInactive},
		{name: "not started", promo: &model.Promotion{Active: true, StartsAt: &future}, want: ReasonNotStarted},
		{name: "expired", promo: &model.Promotion{Active: true, EndsAt: &past}, want: ReasonExpired},
		{name: "inside window", promo: &model.Promotion{Active: true, StartsAt: &past, EndsAt: &future}},
		{name: "global count equals limit", promo: &model.Promotion{Active: true, UsageLimit: intp(5)}, used: 5, want: ReasonUsageLimit},
		{name: "global count below limit", promo: &model.Promotion{Active: true, UsageLimit: intp(5)}, used: 4},
		{
			name:   "identity at per-user limit",
			promo:  &model.Promotion{Active: true, UsagePerUser: intp(1)},
			usedBy: 1,
			who:    Identity{UserID: &uid, Email: "a@b.c"},
			want:   ReasonPerUserLimit,
		},
		{
			name:   "identity below per-user limit",
			promo:  &model.Promotion{Active: true, UsagePerUser: intp(2)},
			usedBy: 1,
			who:    Identity{Email: "a@b.c"},
		},
		{
			name:   "anonymous skips per-user limit",
			promo:  &model.Promotion{Active: true, UsagePerUser: intp(1)},
			usedBy: 10,
		},
		{
			name:  "window checked before usage",
			promo: &model.Promotion{Active: true, EndsAt: &past, UsageLimit: intp(1)},
			used:  3,
			want:  ReasonExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{promos: map[uint64]model.Promotion{}, used: tt.used, usedBy: tt.usedBy}
			if tt.promo != nil {
				p := *tt.promo
				p.ID = 1
				store.promos[1] = p
			}
			c := NewChecker(store, func() time.Time { return now })

			_, err := c.Check(context.Background(), 1, tt.who)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			var ie *IneligibleError
			require.True(t, errors.As(err, &ie), "want IneligibleError, got %v", err)
			assert.Equal(t, tt.want, ie.Reason)
			assert.Equal(t, string(tt.want), err.Error())
		})
	}
}

func TestChecker_PassesIdentity(t *testing.T) {
	uid := uint64(42)
	store := &mockStore{promos: map[uint64]model.Promotion{
		3: {ID: 3, Active: true, UsagePerUser: intp(1)},
	}}
	_, err := NewChecker(store, nil).Check(context.Background(), 3, Identity{UserID: &uid, Email: "x@y.z"})
	require.NoError(t, err)
	require.Equal(t, 1, store.byCalls)
	require.NotNil(t, store.lastUserID)
	assert.Equal(t, uid, *store.lastUserID)
	assert.Equal(t, "x@y.z", store.lastEmail)
}

func TestChecker_StoreError(t *testing.T) {
	boom := errors.New("db down")
	store := &mockStore{
		promos:   map[uint64]model.Promotion{1: {ID: 1, Active: true, UsageLimit: intp(1)}},
		countErr: boom,
	}
	_, err := NewChecker(store, nil).Check(context.Background(), 1, Identity{})
	require.ErrorIs(t, err, boom)
	var ie *IneligibleError
	assert.False(t, errors.As(err, &ie))
}
