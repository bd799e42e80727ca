package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
	"github.com/iliyamo/movies-from-a-hat/internal/database"
	"github.com/iliyamo/movies-from-a-hat/internal/queue"
	"github.com/iliyamo/movies-from-a-hat/internal/repository"
	"github.com/iliyamo/movies-from-a-hat/internal/router"
	"github.com/iliyamo/movies-from-a-hat/internal/service"
	"github.com/iliyamo/movies-from-a-hat/internal/tmdb"
	"github.com/iliyamo/movies-from-a-hat/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	if cfg.EventsConsumer && cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartMovieEventConsumer(ctx, cfg.RabbitURL, cfg.MovieEventsLogDir); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("movie-events consumer stopped", "err", err)
			}
		}()
	}

	go purgeExpiredSessions(ctx, repository.NewTokenRepo(db))

	e := router.New(router.Deps{
		Cfg:       cfg,
		DB:        db,
		Redis:     rdb,
		TMDB:      tmdb.New(cfg),
		Events:    service.NewPublisher(cfg.RabbitURL),
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver, "redis", rdb != nil)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
}

// purgeExpiredSessions deletes expired session rows once an hour.
func purgeExpiredSessions(ctx context.Context, tokens *repository.TokenRepo) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx)
			if err != nil {
				slog.Warn("purge expired sessions", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired sessions", "count", n)
			}
		}
	}
}
