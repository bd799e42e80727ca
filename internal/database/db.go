package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
	"github.com/iliyamo/movies-from-a-hat/internal/model"
)

// Open connects to the configured store, verifies the connection and
// creates any missing tables.  There is no migration tooling; AutoMigrate
// only adds what is absent.
func Open(cfg config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLog := gormlogger.NewSlogLogger(
		slog.Default(),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// a single writer avoids SQLITE_BUSY between concurrent requests
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the catalogue and auth tables.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Movie{}, "Genres", &model.GenreMovieLink{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	if err := db.AutoMigrate(&model.Genre{}, &model.Movie{}, &model.GenreMovieLink{}, &model.User{}, &model.AccessToken{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func dialectorFor(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "", "sqlite":
		// foreign keys are off by default in SQLite
		return sqlite.Open(cfg.DBPath + "?_foreign_keys=on"), nil
	case "mysql":
		dsn := mysql.Config{
			User:                 cfg.DBUser,
			Passwd:               cfg.DBPass,
			Net:                  "tcp",
			Addr:                 cfg.DBHost + ":" + cfg.DBPort,
			DBName:               cfg.DBName,
			ParseTime:            true,
			Loc:                  time.UTC,
			AllowNativePasswords: true,
			Params:               map[string]string{"charset": "utf8mb4"},
		}
		return gormmysql.Open(dsn.FormatDSN()), nil
	case "postgres":
		return postgres.Open(cfg.DatabaseURL), nil
	}
	return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
}
