package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

var duplicate = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestUserRepo_Create(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("a@b.co", "hash", nil, model.RoleUser).
		WillReturnResult(sqlmock.NewResult(12, 1))
	id, err := repo.Create(ctx, "  A@B.co ", "hash", nil, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	mock.ExpectExec(q("INSERT INTO users")).WillReturnError(duplicate)
	_, err = repo.Create(ctx, "a@b.co", "hash", nil, model.RoleUser)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_Lookups(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT "+userColumns+" FROM users WHERE email=?")).
		WithArgs("a@b.co").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "role", "created_at", "updated_at"}).
			AddRow(1, "a@b.co", "h", nil, model.RoleAdmin, now, now))
	u, err := repo.GetByEmail(ctx, "A@B.CO")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Nil(t, u.DisplayName)

	mock.ExpectQuery(q("SELECT "+userColumns+" FROM users WHERE id=?")).
		WithArgs(uint64(2)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q("SELECT role FROM users WHERE id=?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(""))
	role, err := repo.RoleByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)
}

func TestMovieRepo_List(t *testing.T) {
	cols := []string{"id", "title", "duration_min", "rating", "poster_url", "overview", "active", "created_at"}
	now := time.Now().UTC()

	tests := []struct {
		name   string
		filter MovieFilter
		query  string
		args   []any
	}{
		{
			name:   "active only",
			filter: MovieFilter{ActiveOnly: true, Limit: 50},
			query:  "SELECT " + movieColumns + " FROM movies WHERE active = 1 ORDER BY created_at DESC, id DESC LIMIT ?",
			args:   []any{50},
		},
		{
			name:   "search escapes wildcards",
			filter: MovieFilter{Query: " 100%_Fun ", Limit: 5},
			query:  "SELECT " + movieColumns + " FROM movies WHERE (LOWER(title) LIKE ? OR LOWER(COALESCE(rating,'')) LIKE ?) ORDER BY created_at DESC, id DESC LIMIT ?",
			args:   []any{`%100\%\_fun%`, `%100\%\_fun%`, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			args := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				args = append(args, a)
			}
			mock.ExpectQuery("^" + q(tt.query) + "$").
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "Dune", 155, "PG-13", nil, nil, true, now))

			movies, err := NewMovieRepo(db).List(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, movies, 1)
			assert.Equal(t, "PG-13", *movies[0].Rating)
		})
	}
}

func TestMovieRepo_Toggle(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "title", "duration_min", "rating", "poster_url", "overview", "active", "created_at"}

	mock.ExpectQuery(q("FROM movies WHERE id=?")).WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, "Dune", 155, nil, nil, nil, true, time.Now()))
	mock.ExpectExec(q("UPDATE movies SET active=? WHERE id=?")).WithArgs(false, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m, err := NewMovieRepo(db).Toggle(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, m.Active)
}

func TestOrderRepo_Create(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewOrderRepo(db)
	email := "a@b.co"
	paid := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	o := model.Order{
		RefCode:        "RF-1",
		ShowtimeID:     3,
		BuyerEmail:     &email,
		Status:         model.OrderStatusPaid,
		TotalAmount:    decimal.NewFromInt(450),
		DiscountAmount: decimal.Zero,
		PaidAt:         &paid,
	}

	mock.ExpectExec(q("INSERT INTO orders")).
		WithArgs("RF-1", uint64(3), nil, "a@b.co", model.OrderStatusPaid, o.TotalAmount, nil, o.DiscountAmount, paid).
		WillReturnResult(sqlmock.NewResult(77, 1))
	require.NoError(t, repo.Create(ctx, &o))
	assert.Equal(t, uint64(77), o.ID)

	mock.ExpectExec(q("INSERT INTO orders")).WillReturnError(duplicate)
	assert.ErrorIs(t, repo.Create(ctx, &o), ErrConflict)
}

func TestOrderRepo_CreateTickets(t *testing.T) {
	db, mock := newMock(t)
	price := decimal.NewFromInt(150)
	mock.ExpectExec("^"+q("INSERT INTO tickets (order_id, seat_label, price) VALUES (?, ?, ?),(?, ?, ?)")+"$").
		WithArgs(uint64(9), "A1", price, uint64(9), "A2", price).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewOrderRepo(db)
	require.NoError(t, repo.CreateTickets(context.Background(), 9, []string{"A1", "A2"}, price))
	require.NoError(t, repo.CreateTickets(context.Background(), 9, nil, price))
}

func TestPromotionRepo_LocksInsideTx(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "code", "type", "value", "max_discount", "min_spend", "starts_at", "ends_at",
		"usage_limit", "usage_per_user", "active", "created_at", "updated_at"}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM promotions WHERE id=? LIMIT 1 FOR UPDATE")).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, "FLAT20", "FIXED", "20.00", nil, "100.00", nil, nil, 10, nil, true, now, now))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	p, err := NewPromotionRepo(db).WithTx(tx).GetByID(context.Background(), 5)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, decimal.NewFromInt(20).Equal(p.Value))
	assert.False(t, p.MaxDiscount.Valid)
	assert.True(t, p.MinSpend.Valid)
	require.NotNil(t, p.UsageLimit)
	assert.Equal(t, 10, *p.UsageLimit)
	assert.Nil(t, p.UsagePerUser)
}

func TestPromotionRepo_CountRedemptionsBy(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewPromotionRepo(db)
	uid := uint64(8)

	n, err := repo.CountRedemptionsBy(ctx, 1, nil, "  ")
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectQuery(q("WHERE promotion_id=? AND (user_id = ? OR email = ?)")).
		WithArgs(uint64(1), uid, "a@b.co").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	n, err = repo.CountRedemptionsBy(ctx, 1, &uid, "A@b.co")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPromotionRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO promotions")).WillReturnError(duplicate)

	p := model.Promotion{Code: " flat20 ", Type: "fixed", Value: decimal.NewFromInt(20), Active: true}
	err := NewPromotionRepo(db).Create(context.Background(), &p)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "FLAT20", p.Code)
	assert.Equal(t, model.PromotionFixed, p.Type)
}

func TestSeatHoldRepo(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewSeatHoldRepo(db)
	exp := time.Now().Add(5 * time.Minute)
	holds := NewHolds(3, []string{"A1", "A2"}, "tok", nil, exp)
	require.Len(t, holds, 2)

	mock.ExpectExec(q("INSERT INTO seat_holds")).WillReturnError(duplicate)
	assert.ErrorIs(t, repo.CreateMultiple(ctx, holds), ErrConflict)

	mock.ExpectExec(q("DELETE FROM seat_holds WHERE showtime_id = ? AND seat_label IN (?,?)")).
		WithArgs(uint64(3), "A1", "A2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.DeleteSeats(ctx, 3, []string{"A1", "A2"}))

	mock.ExpectExec(q("DELETE FROM seat_holds WHERE showtime_id = ? AND hold_token = ?")).
		WithArgs(uint64(3), "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))
	n, err := repo.DeleteByToken(ctx, 3, "tok")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"user_id", "expires_at", "revoked_at"}

	tests := []struct {
		name    string
		row     []driver.Value
		userID  uint64
		wantErr error
	}{
		{"valid", []driver.Value{uint64(4), now.Add(time.Hour), nil}, 4, nil},
		{"expired", []driver.Value{uint64(4), now.Add(-time.Hour), nil}, 0, ErrNotFound},
		{"revoked", []driver.Value{uint64(4), now.Add(time.Hour), now}, 0, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(q("FROM refresh_tokens WHERE token_hash=?")).WithArgs("h").
				WillReturnRows(sqlmock.NewRows(cols).AddRow(tt.row...))

			id, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.userID, id)
		})
	}
}
