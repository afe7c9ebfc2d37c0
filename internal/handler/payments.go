package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/checkout"
)

// PaymentConfirmer is implemented by *checkout.Finalizer.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type PaymentHandler struct {
	Checkout PaymentConfirmer
}

func NewPaymentHandler(fin PaymentConfirmer) *PaymentHandler {
	return &PaymentHandler{Checkout: fin}
}

// flexID accepts an id sent either as a JSON number or as a numeric
// string. Anything else decodes to zero.
type flexID uint64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexID(n)
	return nil
}

type confirmReq struct {
	RefCode      string              `json:"refCode"`
	Email        string              `json:"email"`
	ShowtimeID   flexID              `json:"showtimeId"`
	Seats        []string            `json:"seats"`
	PricePerSeat decimal.NullDecimal `json:"pricePerSeat"`
	PromoCode    string              `json:"promoCode"`
}

// Confirm records a paid order. Repeating a reference code returns the
// existing order.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Checkout.ConfirmPayment(c.Request().Context(), checkout.Request{
		RefCode:      req.RefCode,
		Email:        req.Email,
		ShowtimeID:   uint64(req.ShowtimeID),
		Seats:        req.Seats,
		PricePerSeat: req.PricePerSeat.Decimal,
		PromoCode:    req.PromoCode,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"orderId": res.OrderID, "emailSent": res.EmailSent})
}
