// Package middleware holds the echo middleware shared by the routers:
// bearer authentication, the admin gate, Redis-backed caching and rate
// limiting, and request logging.
package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Email returns the email claim of the authenticated user.
func Email(c echo.Context) string {
	s, _ := c.Get(CtxEmail).(string)
	return s
}

// userKey identifies the caller for rate limiting.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
