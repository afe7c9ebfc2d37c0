// Package handler implements the HTTP endpoints. Every response carries
// an "ok" flag; failures add an "error" message.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/auth"
	"github.com/iliyamo/cinema-ticket-booking/internal/catalog"
	"github.com/iliyamo/cinema-ticket-booking/internal/checkout"
	"github.com/iliyamo/cinema-ticket-booking/internal/promotion"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// ok writes a success envelope with the given fields merged in.
func ok(c echo.Context, status int, fields echo.Map) error {
	body := echo.Map{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(status, body)
}

// badRequest is a client error whose message is shown verbatim.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func errBadRequest(msg string) error { return &badRequest{msg: msg} }

// statusOf maps an error onto an HTTP status and the message shown to the
// client.
func statusOf(err error) (int, string) {
	var (
		he *echo.HTTPError
		br *badRequest
		ve *checkout.ValidationError
		ie *catalog.InvalidError
		pe *promotion.IneligibleError
		ue *catalog.UnavailableError
	)
	switch {
	case errors.As(err, &he):
		if msg, isStr := he.Message.(string); isStr {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.As(err, &ie):
		return http.StatusBadRequest, ie.Msg
	case errors.As(err, &pe):
		return http.StatusBadRequest, string(pe.Reason)
	case errors.As(err, &ue):
		return http.StatusConflict, ue.Error()
	case errors.Is(err, promotion.ErrMissingCode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidRefresh):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict, err.Error()
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, promotion.ErrCodeNotFound),
		errors.Is(err, promotion.ErrDisabled),
		errors.Is(err, catalog.ErrShowtimeNotFound),
		errors.Is(err, catalog.ErrHoldNotFound),
		errors.Is(err, catalog.ErrHoldsDisabled):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "Not found"
	}
	return http.StatusInternalServerError, err.Error()
}

// ErrorHandler renders every error returned by a handler or middleware as
// an envelope. 5xx errors are logged.
func ErrorHandler(lg *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := statusOf(err)
		if status >= http.StatusInternalServerError {
			lg.Error("Request failed", zap.Error(err),
				zap.String("route", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
		}
		body := echo.Map{"ok": false, "error": msg}
		var ue *catalog.UnavailableError
		if errors.As(err, &ue) {
			body["seats"] = ue.Seats
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			lg.Warn("Write error response failed", zap.Error(err))
		}
	}
}
