package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

// Promotion listing filters.
const (
	PromotionStatusActive   = "ACTIVE"
	PromotionStatusDisabled = "DISABLED"
	PromotionStatusAll      = "ALL"
)

// PromotionPatch is a partial update; unset fields are left untouched and
// explicit nulls clear nullable columns.
type PromotionPatch struct {
	Code         utils.Optional[string]
	Type         utils.Optional[string]
	Value        utils.Optional[decimal.Decimal]
	MaxDiscount  utils.Optional[decimal.Decimal]
	MinSpend     utils.Optional[decimal.Decimal]
	StartsAt     utils.Optional[time.Time]
	EndsAt       utils.Optional[time.Time]
	UsageLimit   utils.Optional[int]
	UsagePerUser utils.Optional[int]
	Active       utils.Optional[bool]
}

// PromotionRepo persists promotions and their redemptions. A repository
// obtained through WithTx reads promotion rows with FOR UPDATE so that
// concurrent checkouts of one code are serialized until commit.
type PromotionRepo struct {
	db   DBTX
	lock bool
}

func NewPromotionRepo(db DBTX) *PromotionRepo { return &PromotionRepo{db: db} }

// WithTx returns a locking repository bound to tx.
func (r *PromotionRepo) WithTx(tx *sql.Tx) *PromotionRepo { return &PromotionRepo{db: tx, lock: true} }

// NormalizeCode trims and upper-cases a promotion code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

const promotionColumns = "id,code,type,value,max_discount,min_spend,starts_at,ends_at,usage_limit,usage_per_user,active,created_at,updated_at"

func (r *PromotionRepo) suffix() string {
	if r.lock {
		return " FOR UPDATE"
	}
	return ""
}

// GetByID fetches a promotion.
func (r *PromotionRepo) GetByID(ctx context.Context, id uint64) (model.Promotion, error) {
	return scanPromotion(r.db.QueryRowContext(ctx,
		"SELECT "+promotionColumns+" FROM promotions WHERE id=? LIMIT 1"+r.suffix(), id))
}

// GetByCode fetches a promotion by its normalized code.
func (r *PromotionRepo) GetByCode(ctx context.Context, code string) (model.Promotion, error) {
	return scanPromotion(r.db.QueryRowContext(ctx,
		"SELECT "+promotionColumns+" FROM promotions WHERE code=? LIMIT 1"+r.suffix(), NormalizeCode(code)))
}

// List returns promotions matching status (ACTIVE, DISABLED or ALL) with
// their redemption count and number of distinct redeeming identities,
// newest first.
func (r *PromotionRepo) List(ctx context.Context, status string) ([]model.PromotionStats, error) {
	query := `SELECT ` + prefixed("p.", promotionColumns) + `,
		(SELECT COUNT(*) FROM promotion_redemptions r WHERE r.promotion_id = p.id),
		(SELECT COUNT(DISTINCT CASE
			WHEN r.user_id IS NOT NULL THEN CONCAT('uid:', r.user_id)
			WHEN r.email IS NOT NULL AND r.email <> '' THEN CONCAT('email:', LOWER(r.email))
		 END) FROM promotion_redemptions r WHERE r.promotion_id = p.id)
	FROM promotions p`
	switch strings.ToUpper(status) {
	case PromotionStatusAll:
	case PromotionStatusDisabled:
		query += " WHERE p.active = 0"
	default:
		query += " WHERE p.active = 1"
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query promotions")
	}
	defer rows.Close()

	out := []model.PromotionStats{}
	for rows.Next() {
		var st model.PromotionStats
		p, err := scanPromotionWith(rows, &st.UsageCount, &st.UniqueUsers)
		if err != nil {
			return nil, err
		}
		st.Promotion = p
		out = append(out, st)
	}
	return out, rows.Err()
}

// Create inserts p with a normalized code. A duplicate code yields
// ErrConflict.
func (r *PromotionRepo) Create(ctx context.Context, p *model.Promotion) error {
	p.Code = NormalizeCode(p.Code)
	p.Type = strings.ToUpper(p.Type)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO promotions (code, type, value, max_discount, min_spend, starts_at, ends_at, usage_limit, usage_per_user, active)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.Code, p.Type, p.Value, p.MaxDiscount, p.MinSpend,
		utcOrNil(p.StartsAt), utcOrNil(p.EndsAt), intOrNil(p.UsageLimit), intOrNil(p.UsagePerUser), p.Active)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "insert promotion")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = created
	return nil
}

// Update applies patch and returns the stored row.
func (r *PromotionRepo) Update(ctx context.Context, id uint64, patch PromotionPatch) (model.Promotion, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, set bool, v any) {
		if set {
			sets = append(sets, col+"=?")
			args = append(args, v)
		}
	}
	if patch.Code.Set && !patch.Code.Null {
		add("code", true, NormalizeCode(patch.Code.Value))
	}
	if patch.Type.Set && !patch.Type.Null {
		add("type", true, strings.ToUpper(patch.Type.Value))
	}
	if patch.Value.Set && !patch.Value.Null {
		add("value", true, patch.Value.Value)
	}
	add("max_discount", patch.MaxDiscount.Set, optionalValue(patch.MaxDiscount))
	add("min_spend", patch.MinSpend.Set, optionalValue(patch.MinSpend))
	add("starts_at", patch.StartsAt.Set, utcOrNil(patch.StartsAt.Ptr()))
	add("ends_at", patch.EndsAt.Set, utcOrNil(patch.EndsAt.Ptr()))
	add("usage_limit", patch.UsageLimit.Set, intOrNil(patch.UsageLimit.Ptr()))
	add("usage_per_user", patch.UsagePerUser.Set, intOrNil(patch.UsagePerUser.Ptr()))
	if patch.Active.Set && !patch.Active.Null {
		add("active", true, patch.Active.Value)
	}

	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.db.ExecContext(ctx,
			"UPDATE promotions SET "+strings.Join(sets, ",")+" WHERE id=?", args...); err != nil {
			if database.IsDuplicateKey(err) {
				return model.Promotion{}, ErrConflict
			}
			return model.Promotion{}, errors.Wrap(err, "update promotion")
		}
	}
	return r.GetByID(ctx, id)
}

// Deactivate clears the active flag. Promotions are never deleted.
func (r *PromotionRepo) Deactivate(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE promotions SET active=0 WHERE id=?", id)
	return errors.Wrap(err, "deactivate promotion")
}

// CountRedemptions returns the total redemptions of a promotion.
func (r *PromotionRepo) CountRedemptions(ctx context.Context, promotionID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM promotion_redemptions WHERE promotion_id=?", promotionID).Scan(&n)
	return n, errors.Wrap(err, "count redemptions")
}

// CountRedemptionsBy returns the redemptions attributed to the user id OR
// the email. With neither identity it returns 0.
func (r *PromotionRepo) CountRedemptionsBy(ctx context.Context, promotionID uint64, userID *uint64, email string) (int, error) {
	var (
		or   []string
		args = []any{promotionID}
	)
	if userID != nil {
		or = append(or, "user_id = ?")
		args = append(args, *userID)
	}
	if email = NormalizeEmail(email); email != "" {
		or = append(or, "email = ?")
		args = append(args, email)
	}
	if len(or) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM promotion_redemptions WHERE promotion_id=? AND ("+strings.Join(or, " OR ")+")",
		args...).Scan(&n)
	return n, errors.Wrap(err, "count identity redemptions")
}

// CreateRedemption records one use of a promotion by an order.
func (r *PromotionRepo) CreateRedemption(ctx context.Context, red *model.PromotionRedemption) error {
	var email *string
	if red.Email != nil {
		if e := NormalizeEmail(*red.Email); e != "" {
			email = &e
		}
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO promotion_redemptions (promotion_id, order_id, user_id, email) VALUES (?,?,?,?)",
		red.PromotionID, red.OrderID, nullUint(red.UserID), nullString(email))
	if err != nil {
		return errors.Wrap(err, "insert redemption")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	red.ID = uint64(id)
	return nil
}

func scanPromotion(s rowScanner) (model.Promotion, error) {
	return scanPromotionWith(s)
}

func scanPromotionWith(s rowScanner, extra ...any) (model.Promotion, error) {
	var (
		p              model.Promotion
		startsAt       sql.NullTime
		endsAt         sql.NullTime
		limit, perUser sql.NullInt64
	)
	dest := []any{&p.ID, &p.Code, &p.Type, &p.Value, &p.MaxDiscount, &p.MinSpend,
		&startsAt, &endsAt, &limit, &perUser, &p.Active, &p.CreatedAt, &p.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.Promotion{}, noRows(err)
	}
	p.StartsAt = timePtr(startsAt)
	p.EndsAt = timePtr(endsAt)
	p.UsageLimit = intPtr(limit)
	p.UsagePerUser = intPtr(perUser)
	return p, nil
}

func prefixed(prefix, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ",")
}

func optionalValue(o utils.Optional[decimal.Decimal]) decimal.NullDecimal {
	if o.Null {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(o.Value)
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
