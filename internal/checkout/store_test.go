package checkout

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-faster/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

func newSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewSQLStore(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var promotionCols = []string{"id", "code", "type", "value", "max_discount", "min_spend", "starts_at", "ends_at",
	"usage_limit", "usage_per_user", "active", "created_at", "updated_at"}

func expectLockedPromotion(mock sqlmock.Sqlmock, id uint64) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("FROM promotions WHERE id=? LIMIT 1 FOR UPDATE")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(promotionCols).
			AddRow(id, "FLAT20", "FIXED", "20.00", nil, nil, nil, nil, 1, nil, true, now, now))
}

// writeOrder runs the writes of one checkout inside tx.
func writeOrder(ctx context.Context, tx TxStore, promoID uint64) error {
	if _, err := tx.GetByID(ctx, promoID); err != nil {
		return err
	}
	o := model.Order{RefCode: "RF-1", ShowtimeID: 7, Status: model.OrderStatusPaid, TotalAmount: dec("280"), DiscountAmount: dec("20")}
	if err := tx.CreateOrder(ctx, &o); err != nil {
		return err
	}
	if err := tx.CreateTickets(ctx, o.ID, []string{"A1", "A2"}, dec("150")); err != nil {
		return err
	}
	if err := tx.ReleaseHolds(ctx, 7, []string{"A1", "A2"}); err != nil {
		return err
	}
	return tx.CreateRedemption(ctx, &model.PromotionRedemption{PromotionID: promoID, OrderID: o.ID})
}

func TestSQLStore_AtomicCommits(t *testing.T) {
	store, mock := newSQLStore(t)

	mock.ExpectBegin()
	expectLockedPromotion(mock, 3)
	mock.ExpectExec(q("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(q("INSERT INTO tickets (order_id, seat_label, price) VALUES (?, ?, ?),(?, ?, ?)")).
		WithArgs(uint64(41), "A1", sqlmock.AnyArg(), uint64(41), "A2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM seat_holds WHERE showtime_id = ? AND seat_label IN")).
		WithArgs(uint64(7), "A1", "A2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO promotion_redemptions")).
		WithArgs(uint64(3), uint64(41), nil, nil).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(tx TxStore) error {
		return writeOrder(context.Background(), tx, 3)
	})
	require.NoError(t, err)
}

func TestSQLStore_AtomicRollsBack(t *testing.T) {
	duplicate := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'RF-1'"}
	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
		check  func(*testing.T, error)
	}{
		{
			name: "duplicate ref code",
			expect: func(mock sqlmock.Sqlmock) {
				expectLockedPromotion(mock, 3)
				mock.ExpectExec(q("INSERT INTO orders")).WillReturnError(duplicate)
				mock.ExpectRollback()
			},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, repository.ErrConflict) },
		},
		{
			name: "ticket insert fails",
			expect: func(mock sqlmock.Sqlmock) {
				expectLockedPromotion(mock, 3)
				mock.ExpectExec(q("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(41, 1))
				mock.ExpectExec(q("INSERT INTO tickets")).WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, sql.ErrConnDone)
				assert.Contains(t, err.Error(), "insert tickets")
			},
		},
		{
			name: "promotion missing",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q("FROM promotions WHERE id=? LIMIT 1 FOR UPDATE")).WithArgs(uint64(3)).
					WillReturnRows(sqlmock.NewRows(promotionCols))
				mock.ExpectRollback()
			},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, repository.ErrNotFound) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newSQLStore(t)
			mock.ExpectBegin()
			tt.expect(mock)

			err := store.Atomic(context.Background(), func(tx TxStore) error {
				return writeOrder(context.Background(), tx, 3)
			})
			tt.check(t, err)
		})
	}
}

func TestSQLStore_AtomicCommitFailure(t *testing.T) {
	store, mock := newSQLStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := store.Atomic(context.Background(), func(tx TxStore) error {
		return tx.CreateOrder(context.Background(), &model.Order{RefCode: "RF-1", ShowtimeID: 7})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit checkout")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSQLStore_AtomicBeginFailure(t *testing.T) {
	store, mock := newSQLStore(t)
	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	called := false
	err := store.Atomic(context.Background(), func(TxStore) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "begin checkout")
	assert.False(t, called)
}

func TestSQLStore_PromotionReadsOutsideTxDoNotLock(t *testing.T) {
	store, mock := newSQLStore(t)
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("^SELECT .+ FROM promotions WHERE code=\\? LIMIT 1$").WithArgs("FLAT20").
		WillReturnRows(sqlmock.NewRows(promotionCols).
			AddRow(3, "FLAT20", "FIXED", "20.00", nil, nil, nil, nil, nil, nil, true, now, now))

	p, err := store.PromotionByCode(context.Background(), " flat20 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.ID)
}
