package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
	"github.com/iliyamo/movies-from-a-hat/internal/model"
	"github.com/iliyamo/movies-from-a-hat/internal/repository"
	"github.com/iliyamo/movies-from-a-hat/internal/utils"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "movies-from-a-hat"

// UserLookup loads users by id.  *repository.UserRepo implements it.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// SessionStore validates persisted sessions.  *repository.TokenRepo
// implements it.
type SessionStore interface {
	Validate(ctx context.Context, tokenHash string) (string, error)
}

// RequireSession authenticates the request from the session cookie.  The
// token must carry a valid HS256 signature, an unexpired exp, and sub and
// jti claims; the session row for jti must still exist, and the active
// user owning that row must have the token's subject as email.  On failure the
// request is answered with 401, or with a 303 redirect to
// cfg.LoginRedirect when one is configured.
func RequireSession(cfg config.Config, users UserLookup, sessions SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, sid, err := authenticate(c, cfg.SessionSecret, users, sessions)
			if err != nil {
				slog.Debug("session rejected", "path", c.Path(), "err", err)
				if cfg.LoginRedirect != "" {
					return c.Redirect(http.StatusSeeOther, cfg.LoginRedirect)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			c.Set(ctxUser, u)
			c.Set(ctxSessionID, sid)
			return next(c)
		}
	}
}

var errInactiveUser = errors.New("user inactive")

func authenticate(c echo.Context, secret string, users UserLookup, sessions SessionStore) (*model.User, string, error) {
	ck, err := c.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return nil, "", utils.ErrInvalidSession
	}
	claims, err := utils.ParseSessionToken(secret, ck.Value)
	if err != nil {
		return nil, "", err
	}
	ctx := c.Request().Context()
	ownerID, err := sessions.Validate(ctx, utils.HashSessionID(claims.ID))
	if err != nil {
		return nil, "", err
	}
	u, err := users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}
	if !strings.EqualFold(u.Email, claims.Email) {
		return nil, "", repository.ErrTokenInvalid
	}
	if !u.IsActive {
		return nil, "", errInactiveUser
	}
	return u, claims.ID, nil
}
