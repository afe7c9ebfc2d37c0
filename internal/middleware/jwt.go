package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the user id, email
// and role claims in the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			// ParseAccessToken has already rejected a bad subject.
			id, _ := claims.UserID()
			c.Set(CtxUserID, id)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}
