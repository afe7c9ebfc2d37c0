package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{DB: db} }

// Live answers without touching dependencies.
func (h *HealthHandler) Live(c echo.Context) error {
	return ok(c, http.StatusOK, echo.Map{"service": "cinema-ticket-booking"})
}

// Ready reports 503 while the database is unreachable.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"ok": false, "error": "database unavailable"})
	}
	return ok(c, http.StatusOK, echo.Map{"db": "up"})
}
