package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
	"github.com/iliyamo/movies-from-a-hat/internal/middleware"
	"github.com/iliyamo/movies-from-a-hat/internal/repository"
	"github.com/iliyamo/movies-from-a-hat/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginReq accepts the OAuth2 password form (username carries the email)
// as well as JSON with either email or username.
type loginReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

var statusSuccess = echo.Map{"status": "Success"}

// Register: create a user.  The password hash is never returned.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return unprocessable("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return unprocessable("email: not a valid email address")
	}
	if req.Username == "" {
		return unprocessable("username: field required")
	}
	if req.Password == "" {
		return unprocessable("password: field required")
	}

	u, err := h.Users.Register(c.Request().Context(), req.Email, req.Username, req.Password, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return echo.NewHTTPError(http.StatusBadRequest, "A user with this email already exists")
	case errors.Is(err, repository.ErrUsernameExists):
		return echo.NewHTTPError(http.StatusBadRequest, "A user with this username already exists")
	case errors.Is(err, utils.ErrPasswordTooLong):
		return unprocessable("password: at most 72 bytes")
	case err != nil:
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Login: verify credentials, persist the session and set the cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return unprocessable("invalid body")
	}
	email := req.Username
	if email == "" {
		email = req.Email
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || req.Password == "" {
		return unprocessable("username and password are required")
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, detailInvalidCreds)
		}
		return mapError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.HashedPassword, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, detailInvalidCreds)
	}

	tok, err := utils.NewSessionToken(h.Cfg.SessionSecret, u.Email, h.Cfg.SessionTTL())
	if err != nil {
		return mapError(c, err)
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashSessionID(tok.ID), tok.Exp); err != nil {
		return mapError(c, err)
	}

	c.SetCookie(h.sessionCookie(tok.Token, h.Cfg.CookieMaxAge, tok.Exp))
	slog.Info("user logged in", "username", u.Username)
	return c.JSON(http.StatusOK, statusSuccess)
}

// Logout: revoke the current session and clear the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if sid := middleware.SessionID(c); sid != "" {
		if err := h.Tokens.Revoke(c.Request().Context(), utils.HashSessionID(sid)); err != nil {
			return mapError(c, err)
		}
	}
	c.SetCookie(h.sessionCookie("", -1, time.Unix(0, 0)))
	return c.JSON(http.StatusOK, statusSuccess)
}

// Me: return the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) sessionCookie(value string, maxAge int, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Domain:   h.Cfg.CookieDomain,
		MaxAge:   maxAge,
		Expires:  exp.UTC(),
		Secure:   h.Cfg.CookieSecure,
		HttpOnly: true,
		SameSite: h.Cfg.CookieSameSite,
	}
}
