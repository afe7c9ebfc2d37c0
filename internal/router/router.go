// Package router wires handlers and middleware onto the echo instance.
// Every API path lives under /api.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-booking/internal/handler"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Movies     *handler.MovieHandler
	Showtimes  *handler.ShowtimeHandler
	Promotions *handler.PromotionHandler
	Payments   *handler.PaymentHandler
	Health     *handler.HealthHandler
}

// Guards are the middleware chains shared between route groups.
type Guards struct {
	// Auth verifies the bearer token.
	Auth echo.MiddlewareFunc
	// Admin must run after Auth.
	Admin echo.MiddlewareFunc
	// Cache wraps the public movie listings.
	Cache echo.MiddlewareFunc
	// RateLimit covers the whole /api tree.
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route.
func Register(e *echo.Echo, h Handlers, g Guards) {
	RegisterHealth(e, h.Health)

	api := e.Group("/api", g.RateLimit)
	api.GET("/health", h.Health.Live)

	RegisterAuth(api, h.Auth, h.Users, g)
	RegisterPublic(api, h, g)
	RegisterAdmin(api, h, g)
}

// RegisterHealth exposes the readiness probe at the root for load
// balancers.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Ready)
}

// RegisterAuth mounts account endpoints. Only /auth/me needs a token;
// refresh and logout authenticate with the refresh token in the body.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, u *handler.UserHandler, g Guards) {
	auth := api.Group("/auth")
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/logout", a.Logout)
	auth.GET("/me", a.Me, g.Auth)

	api.GET("/users/:email/role", u.Role)
	api.GET("/users/:email/tickets", u.Tickets)
}
