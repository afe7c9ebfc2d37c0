package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

var (
	// ErrDisabled is returned when the schema has no promotion tables.
	ErrDisabled = errors.New("Promotions not enabled")
	// ErrMissingCode is returned for a blank code.
	ErrMissingCode = errors.New("Missing code")
	// ErrCodeNotFound is returned when no promotion carries the code.
	ErrCodeNotFound = errors.New("Code not found")
)

// CodeStore extends Store with lookup by code.
type CodeStore interface {
	Store
	GetByCode(ctx context.Context, code string) (model.Promotion, error)
}

// UserFinder resolves a registered user from an email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Quote is the outcome of pricing a subtotal with a promotion.
type Quote struct {
	Promotion model.Promotion
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Final     decimal.Decimal
	Label     string
}

// Service quotes promotion codes for the preview and apply endpoints.
type Service struct {
	store   CodeStore
	users   UserFinder
	enabled bool
	now     func() time.Time
}

// NewService returns a Service. When enabled is false every quote fails
// with ErrDisabled.
func NewService(store CodeStore, users UserFinder, enabled bool, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, users: users, enabled: enabled, now: now}
}

// Enabled reports whether promotions are available.
func (s *Service) Enabled() bool { return s.enabled }

// Quote looks code up, checks eligibility for email and prices subtotal.
func (s *Service) Quote(ctx context.Context, code string, subtotal decimal.Decimal, email string) (Quote, error) {
	if !s.enabled {
		return Quote{}, ErrDisabled
	}
	code = repository.NormalizeCode(code)
	if code == "" {
		return Quote{}, ErrMissingCode
	}
	p, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return Quote{}, ErrCodeNotFound
	}
	if err != nil {
		return Quote{}, errors.Wrap(err, "load promotion")
	}

	who, err := ResolveIdentity(ctx, s.users, email)
	if err != nil {
		return Quote{}, err
	}
	if _, err := NewChecker(s.store, s.now).Check(ctx, p.ID, who); err != nil {
		return Quote{}, err
	}

	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	discount := Evaluate(p, subtotal)
	return Quote{
		Promotion: p,
		Subtotal:  subtotal,
		Discount:  discount,
		Final:     FinalTotal(subtotal, discount),
		Label:     Label(p),
	}, nil
}

// ResolveIdentity builds the redemption identity for an email, attaching
// the user id when the email belongs to a registered user.
func ResolveIdentity(ctx context.Context, users UserFinder, email string) (Identity, error) {
	email = repository.NormalizeEmail(email)
	who := Identity{Email: email}
	if email == "" || users == nil {
		return who, nil
	}
	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return who, nil
	case err != nil:
		return who, errors.Wrap(err, "resolve user")
	}
	who.UserID = &u.ID
	return who, nil
}
