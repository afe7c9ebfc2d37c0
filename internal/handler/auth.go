package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-booking/internal/auth"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
)

// AuthService is implemented by *auth.Service.
type AuthService interface {
	Register(ctx context.Context, email, password string, displayName *string) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Me(ctx context.Context, userID uint64) (auth.PublicUser, error)
	Refresh(ctx context.Context, raw string) (auth.Session, error)
	Logout(ctx context.Context, raw string) error
	RoleOf(ctx context.Context, email string) (string, error)
}

type AuthHandler struct {
	Auth AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler { return &AuthHandler{Auth: svc} }

type registerReq struct {
	Email       string  `json:"email" validate:"required" msg:"Email required"`
	Password    string  `json:"password" validate:"required" msg:"Password required"`
	DisplayName *string `json:"displayName"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required" msg:"Email & password required"`
	Password string `json:"password" validate:"required" msg:"Email & password required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required" msg:"Missing refreshToken"`
}

func sessionBody(s auth.Session) echo.Map {
	return echo.Map{
		"token":            s.Access.Token,
		"expiresAt":        s.Access.Exp,
		"refreshToken":     s.Refresh.Raw,
		"refreshExpiresAt": s.Refresh.Exp,
		"user":             toUserDTO(s.User),
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" {
		return errBadRequest("Email required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sessionBody(s))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sessionBody(s))
}

// Me requires JWTAuth.
func (h *AuthHandler) Me(c echo.Context) error {
	id, authed := middleware.UserID(c)
	if !authed {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	u, err := h.Auth.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"user": toUserDTO(u)})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sessionBody(s))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}
