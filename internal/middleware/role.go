package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// RoleLookup resolves the stored role of a user.
type RoleLookup interface {
	RoleByID(ctx context.Context, id uint64) (string, error)
}

// RequireAdmin admits only users whose stored role is ADMIN. The role is
// read from the database on every request rather than trusted from the
// token, and any lookup failure is a 403. It must run after JWTAuth.
func RequireAdmin(roles RoleLookup, lg *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := UserID(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
			}
			role, err := roles.RoleByID(c.Request().Context(), id)
			if err != nil {
				lg.Warn("Role lookup failed", zap.Error(err), zap.Uint64("user_id", id))
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}
			if role != model.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}
