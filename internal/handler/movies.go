package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/catalog"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// MovieService is implemented by *catalog.Service.
type MovieService interface {
	PublicMovies(ctx context.Context, activeOnly bool, query string, limit int) ([]model.Movie, error)
	AllMovies(ctx context.Context) ([]model.Movie, error)
	CreateMovie(ctx context.Context, in catalog.MovieInput) (model.Movie, error)
	UpdateMovie(ctx context.Context, id uint64, p repository.MoviePatch) (model.Movie, error)
	DeleteMovie(ctx context.Context, id uint64) error
	ToggleMovie(ctx context.Context, id uint64) (model.Movie, error)
}

// Purger drops cached listing responses after a catalog write.
type Purger interface {
	Purge(ctx context.Context) error
}

type MovieHandler struct {
	Movies MovieService
	Cache  Purger
	Log    *zap.Logger
}

func NewMovieHandler(svc MovieService, cache Purger, lg *zap.Logger) *MovieHandler {
	return &MovieHandler{Movies: svc, Cache: cache, Log: lg}
}

type movieReq struct {
	Title       string  `json:"title"`
	DurationMin int     `json:"durationMin"`
	Rating      *string `json:"rating"`
	PosterURL   *string `json:"posterUrl"`
	Overview    *string `json:"overview"`
	Active      *bool   `json:"active"`
}

type moviePatchReq struct {
	Title       *string `json:"title"`
	DurationMin *int    `json:"durationMin"`
	Rating      *string `json:"rating"`
	PosterURL   *string `json:"posterUrl"`
	Overview    *string `json:"overview"`
	Active      *bool   `json:"active"`
}

// List serves GET /movies, /movies/public and /movies/search:
// active=false includes inactive movies, q filters by title or rating.
func (h *MovieHandler) List(c echo.Context) error {
	activeOnly := !strings.EqualFold(strings.TrimSpace(c.QueryParam("active")), "false")
	limit := queryInt(c.QueryParam("limit"), 0)

	movies, err := h.Movies.PublicMovies(c.Request().Context(), activeOnly, c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"movies": toMovieDTOs(movies)})
}

func (h *MovieHandler) AdminList(c echo.Context) error {
	movies, err := h.Movies.AllMovies(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"movies": toMovieDTOs(movies)})
}

func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.Movies.CreateMovie(c.Request().Context(), catalog.MovieInput(req))
	if err != nil {
		return err
	}
	h.purge(c.Request().Context())
	return ok(c, http.StatusOK, echo.Map{"movie": toMovieDTO(m)})
}

func (h *MovieHandler) Update(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var req moviePatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.Movies.UpdateMovie(c.Request().Context(), id, repository.MoviePatch(req))
	if err != nil {
		return err
	}
	h.purge(c.Request().Context())
	return ok(c, http.StatusOK, echo.Map{"movie": toMovieDTO(m)})
}

// Delete hides the movie; rows are kept for existing orders.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := h.Movies.DeleteMovie(c.Request().Context(), id); err != nil {
		return err
	}
	h.purge(c.Request().Context())
	return ok(c, http.StatusOK, nil)
}

func (h *MovieHandler) Toggle(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	m, err := h.Movies.ToggleMovie(c.Request().Context(), id)
	if err != nil {
		return err
	}
	h.purge(c.Request().Context())
	return ok(c, http.StatusOK, echo.Map{"movie": toMovieDTO(m)})
}

func (h *MovieHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx); err != nil {
		h.Log.Warn("Purge movie cache failed", zap.Error(err))
	}
}
