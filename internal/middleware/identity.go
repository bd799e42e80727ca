package middleware

// identity.go defines helpers shared across middleware files and handlers
// for reading the authenticated user that RequireSession stored in the
// Echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
)

// Context keys set by RequireSession.
const (
	ctxUser      = "user"
	ctxSessionID = "session_id"
)

// CurrentUser returns the user attached by RequireSession, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// SessionID returns the jti of the current session, or "".
func SessionID(c echo.Context) string {
	s, _ := c.Get(ctxSessionID).(string)
	return s
}

// currentUserKey identifies the caller for rate limiting.  It only sees a
// user when RequireSession ran before the limiter; every other request
// shares the "anon" key.
func currentUserKey(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.ID != "" {
		return u.ID
	}
	return "anon"
}
