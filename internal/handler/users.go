package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// OrderLister is implemented by *repository.OrderRepo.
type OrderLister interface {
	ListByEmail(ctx context.Context, email string) ([]repository.OrderDetail, error)
}

type UserHandler struct {
	Auth   AuthService
	Orders OrderLister
}

func NewUserHandler(svc AuthService, orders OrderLister) *UserHandler {
	return &UserHandler{Auth: svc, Orders: orders}
}

func emailParam(c echo.Context) (string, error) {
	raw, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		raw = c.Param("email")
	}
	email := repository.NormalizeEmail(raw)
	if email == "" {
		return "", errBadRequest("Missing email")
	}
	return email, nil
}

// Role reports the stored role for an email, USER when unknown.
func (h *UserHandler) Role(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	role, err := h.Auth.RoleOf(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"role": strings.ToUpper(role)})
}

// Tickets lists orders bought with the email or owned by its user.
func (h *UserHandler) Tickets(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	details, err := h.Orders.ListByEmail(c.Request().Context(), email)
	if err != nil {
		return err
	}
	orders := make([]orderDTO, 0, len(details))
	for _, d := range details {
		orders = append(orders, toOrderDTO(d))
	}
	return ok(c, http.StatusOK, echo.Map{"orders": orders})
}
