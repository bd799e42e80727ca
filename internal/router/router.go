package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/iliyamo/movies-from-a-hat/internal/handler"
)

// RegisterRoutes registers routes that do not touch the catalogue or
// sessions.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *gorm.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterMovies registers the catalogue and TMDB endpoints.  limit runs
// on every route; cache wraps the TMDB search pass-through only.
func RegisterMovies(e *echo.Echo, m *handler.MovieHandler, limit, cache echo.MiddlewareFunc) {
	e.GET("/search_movies/", m.SearchMovies, limit, cache)

	e.POST("/movie/", m.CreateMovie, limit)
	e.GET("/movies/", m.ListMovies, limit)
	e.GET("/movie/:id", m.GetMovie, limit)
	e.PATCH("/movie/:id", m.UpdateMovie, limit)
	e.DELETE("/movie/:id", m.DeleteMovie, limit)

	e.POST("/movie_from_tmdb/", m.ImportFromTMDB, limit)
}

// RegisterAuth registers the user endpoints.  session guards the routes
// that need a logged-in user; limit runs after it there so that buckets
// can be keyed by the user.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, session, limit echo.MiddlewareFunc) {
	e.POST("/register", a.Register, limit)
	e.POST("/login", a.Login, limit)

	e.POST("/logout", a.Logout, session, limit)
	e.GET("/users/me", a.Me, session, limit)
}
