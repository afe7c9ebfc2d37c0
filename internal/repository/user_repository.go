package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

type UserRepo struct{ DB DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,display_name,role,created_at,updated_at"

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user with an already hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string, displayName *string, role string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, display_name, role) VALUES (?,?,?,?)",
		NormalizeEmail(email), passwordHash, nullString(displayName), role)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, errors.Wrap(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// RoleByID returns the stored role, defaulting to USER when the column is
// empty.
func (r *UserRepo) RoleByID(ctx context.Context, id uint64) (string, error) {
	var role sql.NullString
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM users WHERE id=? LIMIT 1", id).Scan(&role)
	if err != nil {
		return "", noRows(err)
	}
	if !role.Valid || role.String == "" {
		return model.RoleUser, nil
	}
	return role.String, nil
}

// RoleByEmail is RoleByID keyed by email.
func (r *UserRepo) RoleByEmail(ctx context.Context, email string) (string, error) {
	var role sql.NullString
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)).Scan(&role)
	if err != nil {
		return "", noRows(err)
	}
	if !role.Valid || role.String == "" {
		return model.RoleUser, nil
	}
	return role.String, nil
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		name sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &name, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, noRows(err)
	}
	u.DisplayName = stringPtr(name)
	return u, nil
}
