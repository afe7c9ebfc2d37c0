// Package auth registers and logs in users and issues their tokens: a
// short HS256 access JWT plus an opaque refresh token stored hashed.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrEmailInUse         = errors.New("Email already in use")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidRefresh     = errors.New("Invalid refresh token")
)

// Users is the user store the service needs.
type Users interface {
	Create(ctx context.Context, email, passwordHash string, displayName *string, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	RoleByID(ctx context.Context, id uint64) (string, error)
	RoleByEmail(ctx context.Context, email string) (string, error)
}

// Tokens stores refresh token hashes.
type Tokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// Options configure token lifetimes and hashing cost.
type Options struct {
	Secret         string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// PublicUser is the user as returned to clients.
type PublicUser struct {
	ID          uint64
	Email       string
	DisplayName *string
	Role        string
}

// Session is an authenticated user with a fresh token pair.
type Session struct {
	User    PublicUser
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

type Service struct {
	users  Users
	tokens Tokens
	opts   Options
}

func NewService(users Users, tokens Tokens, opts Options) *Service {
	return &Service{users: users, tokens: tokens, opts: opts}
}

// Register creates a USER account and signs it in.
func (s *Service) Register(ctx context.Context, email, password string, displayName *string) (Session, error) {
	email = repository.NormalizeEmail(email)
	if displayName != nil {
		if d := strings.TrimSpace(*displayName); d != "" {
			displayName = &d
		} else {
			displayName = nil
		}
	}
	hash, err := utils.HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return Session{}, errors.Wrap(err, "hash password")
	}
	id, err := s.users.Create(ctx, email, hash, displayName, model.RoleUser)
	if errors.Is(err, repository.ErrEmailExists) {
		return Session{}, ErrEmailInUse
	}
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, model.User{ID: id, Email: email, DisplayName: displayName})
}

// Login verifies credentials. Unknown emails still pay for a bcrypt
// comparison.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.BurnPasswordCheck(password)
		return Session{}, ErrInvalidCredentials
	case err != nil:
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Me loads the current user with the stored role.
func (s *Service) Me(ctx context.Context, userID uint64) (PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return PublicUser{}, ErrUserNotFound
	}
	if err != nil {
		return PublicUser{}, err
	}
	role, err := s.role(ctx, u.ID)
	if err != nil {
		return PublicUser{}, err
	}
	return PublicUser{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: role}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	uid, err := s.tokens.ValidateRefresh(ctx, hash, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.issue(ctx, u)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(raw)))
}

// RoleOf returns the role stored for email, USER when there is no such
// account.
func (s *Service) RoleOf(ctx context.Context, email string) (string, error) {
	role, err := s.users.RoleByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RoleUser, nil
	}
	return role, err
}

func (s *Service) role(ctx context.Context, id uint64) (string, error) {
	role, err := s.users.RoleByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RoleUser, nil
	}
	return role, err
}

func (s *Service) issue(ctx context.Context, u model.User) (Session, error) {
	role, err := s.role(ctx, u.ID)
	if err != nil {
		return Session{}, err
	}
	access, err := utils.NewAccessToken(s.opts.Secret, u.ID, u.Email, role, s.opts.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.opts.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{
		User:    PublicUser{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: role},
		Access:  access,
		Refresh: refresh,
	}, nil
}
