package checkout

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// SQLStore implements Store on the MySQL repositories.
type SQLStore struct {
	db         *sql.DB
	users      *repository.UserRepo
	orders     *repository.OrderRepo
	showtimes  *repository.ShowtimeRepo
	promotions *repository.PromotionRepo
	holds      *repository.SeatHoldRepo
}

// NewSQLStore returns a store over db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:         db,
		users:      repository.NewUserRepo(db),
		orders:     repository.NewOrderRepo(db),
		showtimes:  repository.NewShowtimeRepo(db),
		promotions: repository.NewPromotionRepo(db),
		holds:      repository.NewSeatHoldRepo(db),
	}
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *SQLStore) OrderByRef(ctx context.Context, ref string) (model.Order, error) {
	return s.orders.GetByRef(ctx, ref)
}

func (s *SQLStore) ShowtimeExists(ctx context.Context, id uint64) (bool, error) {
	return s.showtimes.Exists(ctx, id)
}

func (s *SQLStore) PromotionByCode(ctx context.Context, code string) (model.Promotion, error) {
	return s.promotions.GetByCode(ctx, code)
}

func (s *SQLStore) OrderDetail(ctx context.Context, orderID uint64) (repository.OrderDetail, error) {
	return s.orders.GetDetail(ctx, orderID)
}

// Atomic implements Store.
func (s *SQLStore) Atomic(ctx context.Context, fn func(tx TxStore) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin checkout")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlTx{
		PromotionRepo: s.promotions.WithTx(tx),
		orders:        s.orders.WithTx(tx),
		holds:         s.holds.WithTx(tx),
	}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit checkout")
	}
	return nil
}

type sqlTx struct {
	*repository.PromotionRepo
	orders *repository.OrderRepo
	holds  *repository.SeatHoldRepo
}

func (t *sqlTx) CreateOrder(ctx context.Context, o *model.Order) error {
	return t.orders.Create(ctx, o)
}

func (t *sqlTx) CreateTickets(ctx context.Context, orderID uint64, seats []string, price decimal.Decimal) error {
	return t.orders.CreateTickets(ctx, orderID, seats, price)
}

func (t *sqlTx) ReleaseHolds(ctx context.Context, showtimeID uint64, seats []string) error {
	return t.holds.DeleteSeats(ctx, showtimeID, seats)
}
