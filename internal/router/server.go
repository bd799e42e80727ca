package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
	"github.com/iliyamo/movies-from-a-hat/internal/handler"
	"github.com/iliyamo/movies-from-a-hat/internal/middleware"
	"github.com/iliyamo/movies-from-a-hat/internal/repository"
	"github.com/iliyamo/movies-from-a-hat/internal/service"
)

// TMDB is the part of the TMDB client the server uses.
type TMDB interface {
	handler.Searcher
	service.DetailFetcher
}

// Deps are the collaborators New wires together.  Redis and Events may be
// nil.
type Deps struct {
	Cfg       config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	TMDB      TMDB
	Events    service.EventPublisher
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// New builds the Echo instance with middleware, error handler and routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLog("movies-from-a-hat"))
	e.Use(echomw.Recover())

	movies := repository.NewMovieRepo(d.DB)
	users := repository.NewUserRepo(d.DB)
	tokens := repository.NewTokenRepo(d.DB)

	importer := service.NewImporter(movies, d.TMDB, d.Events)
	mh := handler.NewMovieHandler(movies, d.TMDB, importer, d.Events)
	ah := handler.NewAuthHandler(d.Cfg, users, tokens)

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	RegisterRoutes(e, d.DB)
	RegisterMovies(e, mh, limit, middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterAuth(e, ah, middleware.RequireSession(d.Cfg, users, tokens), limit)
	return e
}
