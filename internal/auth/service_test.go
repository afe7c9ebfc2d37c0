package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

type memUsers struct {
	byID   map[uint64]model.User
	nextID uint64
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, email, hash string, dn *string, role string) (uint64, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	m.nextID++
	m.byID[m.nextID] = model.User{ID: m.nextID, Email: email, PasswordHash: hash, DisplayName: dn, Role: role}
	return m.nextID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = repository.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) RoleByID(_ context.Context, id uint64) (string, error) {
	u, ok := m.byID[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	if u.Role == "" {
		return model.RoleUser, nil
	}
	return u.Role, nil
}

func (m *memUsers) RoleByEmail(ctx context.Context, email string) (string, error) {
	u, err := m.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return m.RoleByID(ctx, u.ID)
}

type memTokens struct {
	owner   map[string]uint64
	revoked map[string]bool
}

func newMemTokens() *memTokens {
	return &memTokens{owner: map[string]uint64{}, revoked: map[string]bool{}}
}

func (m *memTokens) StoreRefresh(_ context.Context, uid uint64, hash string, _ time.Time) error {
	m.owner[hash] = uid
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string, _ time.Time) (uint64, error) {
	uid, ok := m.owner[hash]
	if !ok || m.revoked[hash] {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.revoked[hash] = true
	return nil
}

func newService() (*Service, *memUsers, *memTokens) {
	users, tokens := newMemUsers(), newMemTokens()
	return NewService(users, tokens, Options{
		Secret:         "secret",
		AccessTTLMin:   10,
		RefreshTTLDays: 1,
		BcryptCost:     bcrypt.MinCost,
	}), users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, _ := newService()
	ctx := context.Background()
	name := "  Ann "

	sess, err := svc.Register(ctx, " Ann@Example.COM ", "pw12345", &name)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", sess.User.Email)
	assert.Equal(t, model.RoleUser, sess.User.Role)
	require.NotNil(t, sess.User.DisplayName)
	assert.Equal(t, "Ann", *sess.User.DisplayName)
	assert.NotEqual(t, "pw12345", users.byID[sess.User.ID].PasswordHash)

	claims, err := utils.ParseAccessToken("secret", sess.Access.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, model.RoleUser, claims.Role)

	_, err = svc.Register(ctx, "ann@example.com", "other", nil)
	require.ErrorIs(t, err, ErrEmailInUse)

	login, err := svc.Login(ctx, "ANN@example.com", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "bob@example.com", "right", nil)
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "right")
	_, errWrong := svc.Login(ctx, "bob@example.com", "wrong")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestMe(t *testing.T) {
	svc, users, _ := newService()
	ctx := context.Background()
	sess, err := svc.Register(ctx, "c@example.com", "pw", nil)
	require.NoError(t, err)

	u := users.byID[sess.User.ID]
	u.Role = model.RoleAdmin
	users.byID[u.ID] = u

	me, err := svc.Me(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, me.Role)

	_, err = svc.Me(ctx, 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	sess, err := svc.Register(ctx, "d@example.com", "pw", nil)
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, sess.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Refresh.Raw, next.Refresh.Raw)

	_, err = svc.Refresh(ctx, sess.Refresh.Raw)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	require.NoError(t, svc.Logout(ctx, next.Refresh.Raw))
	_, err = svc.Refresh(ctx, next.Refresh.Raw)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRoleOf(t *testing.T) {
	svc, _, _ := newService()
	role, err := svc.RoleOf(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)
}

type failingUsers struct{ *memUsers }

func (failingUsers) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, errors.New("db down")
}

func TestLogin_StoreError(t *testing.T) {
	_, _, tokens := newService()
	svc := NewService(failingUsers{newMemUsers()}, tokens, Options{Secret: "s", AccessTTLMin: 1, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost})
	_, err := svc.Login(context.Background(), "a@b.c", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
