package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movies-from-a-hat/internal/repository"
	"github.com/iliyamo/movies-from-a-hat/internal/tmdb"
)

// Response details shared by several endpoints.
const (
	detailConstraint   = "Database error occurred, check params."
	detailNotFound     = "Movie not found"
	detailBadParams    = "Bad search params"
	detailGateway      = "Gateway Timeout"
	detailInvalidCreds = "Invalid credentials"
)

// detail builds the JSON error body.
func detail(msg string) echo.Map { return echo.Map{"detail": msg} }

// unprocessable is the 422 answer for request validation failures.
func unprocessable(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, msg)
}

// mapError translates domain errors into HTTP errors.  Unknown errors
// become a 500 and are logged.
func mapError(c echo.Context, err error) *echo.HTTPError {
	switch {
	case errors.Is(err, repository.ErrMovieNotFound):
		return echo.NewHTTPError(http.StatusNotFound, detailNotFound)
	case errors.Is(err, repository.ErrConstraint):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, detailConstraint)
	case errors.Is(err, tmdb.ErrBadParams):
		return echo.NewHTTPError(http.StatusBadRequest, detailBadParams)
	case errors.Is(err, tmdb.ErrUpstream):
		return echo.NewHTTPError(http.StatusGatewayTimeout, detailGateway)
	case errors.Is(err, tmdb.ErrInvalidPayload):
		return echo.NewHTTPError(http.StatusInternalServerError, "Invalid response from TMDB")
	}
	slog.Error("unhandled error", "method", c.Request().Method, "path", c.Path(), "err", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
}

// ErrorHandler renders every error as {"detail": ...}.  It is installed as
// echo.Echo.HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = mapError(c, err)
	}
	msg := http.StatusText(he.Code)
	switch m := he.Message.(type) {
	case string:
		msg = m
	case error:
		msg = m.Error()
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, detail(msg))
	}
	if err != nil {
		slog.Error("write error response", "err", err)
	}
}
