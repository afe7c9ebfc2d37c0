package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/catalog"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/schedule"
)

// ShowtimeEnsurer is implemented by *catalog.Service.
type ShowtimeEnsurer interface {
	EnsureShowtime(ctx context.Context, in catalog.EnsureInput) (model.Showtime, error)
}

// HoldService is implemented by *catalog.Holds.
type HoldService interface {
	Place(ctx context.Context, showtimeID uint64, seats []string, email string) (catalog.Hold, error)
	Release(ctx context.Context, showtimeID uint64, token string) error
	SeatMap(ctx context.Context, showtimeID uint64) (catalog.SeatMap, error)
}

type ShowtimeHandler struct {
	Showtimes ShowtimeEnsurer
	Holds     HoldService
	// Loc interprets start times without an offset and anchors the
	// schedule's calendar days.
	Loc *time.Location
	Now func() time.Time
}

func NewShowtimeHandler(showtimes ShowtimeEnsurer, holds HoldService, loc *time.Location) *ShowtimeHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ShowtimeHandler{Showtimes: showtimes, Holds: holds, Loc: loc, Now: time.Now}
}

type ensureReq struct {
	Title       string              `json:"title"`
	StartsAt    string              `json:"startsAt"`
	Theater     string              `json:"theater"`
	BasePrice   decimal.NullDecimal `json:"basePrice"`
	DurationMin *int                `json:"durationMin"`
}

type holdReq struct {
	Seats []string `json:"seats" validate:"required,min=1" msg:"Seats array is empty"`
	Email string   `json:"email"`
}

var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseStart accepts RFC 3339 or a local date-time, read in loc.
func parseStart(raw string, loc *time.Location) (time.Time, bool) {
	for i, layout := range startLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, raw)
		} else {
			t, err = time.ParseInLocation(layout, raw, loc)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Ensure finds or creates the showtime for a movie title and start time.
func (h *ShowtimeHandler) Ensure(c echo.Context) error {
	var req ensureReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Title) == "" {
		return errBadRequest("Missing title")
	}
	raw := strings.TrimSpace(req.StartsAt)
	if raw == "" {
		return errBadRequest("Missing startsAt")
	}
	starts, parsed := parseStart(raw, h.Loc)
	if !parsed {
		return errBadRequest("Invalid startsAt: " + raw)
	}

	show, err := h.Showtimes.EnsureShowtime(c.Request().Context(), catalog.EnsureInput{
		Title:       req.Title,
		StartsAt:    starts,
		Theater:     req.Theater,
		BasePrice:   req.BasePrice,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"showtimeId": show.ID})
}

type scheduleDay struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// Schedule lists the bookable slots of a movie for the coming days.
func (h *ShowtimeHandler) Schedule(c echo.Context) error {
	movieID, err := parseID(c.QueryParam("movieId"), "movieId")
	if err != nil {
		return err
	}
	days := queryInt(c.QueryParam("days"), schedule.DefaultDays)

	built := schedule.Build(movieID, h.Now().In(h.Loc), days)
	out := make([]scheduleDay, 0, len(built))
	for _, d := range built {
		out = append(out, scheduleDay{Date: d.Date, Times: d.Times})
	}
	return ok(c, http.StatusOK, echo.Map{"movieId": movieID, "days": out})
}

func (h *ShowtimeHandler) Seats(c echo.Context) error {
	id, err := parseID(c.Param("id"), "showtime id")
	if err != nil {
		return err
	}
	m, err := h.Holds.SeatMap(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"showtimeId": id, "sold": m.Sold, "held": m.Held})
}

// PlaceHold holds seats for a few minutes. The email defaults to the
// signed-in user's when a token was presented.
func (h *ShowtimeHandler) PlaceHold(c echo.Context) error {
	id, err := parseID(c.Param("id"), "showtime id")
	if err != nil {
		return err
	}
	var req holdReq
	if err := bind(c, &req); err != nil {
		return err
	}
	email := req.Email
	if strings.TrimSpace(email) == "" {
		email = middleware.Email(c)
	}
	hold, err := h.Holds.Place(c.Request().Context(), id, req.Seats, email)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{
		"holdToken":  hold.Token,
		"showtimeId": hold.ShowtimeID,
		"seats":      hold.Seats,
		"expiresAt":  hold.ExpiresAt,
	})
}

func (h *ShowtimeHandler) ReleaseHold(c echo.Context) error {
	id, err := parseID(c.Param("id"), "showtime id")
	if err != nil {
		return err
	}
	if err := h.Holds.Release(c.Request().Context(), id, c.Param("token")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}
