package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Health returns a health‑check endpoint used by load balancers and
// monitoring systems.  It pings the database and answers 200 {"status":
// "ok"}, or 503 when the database does not respond within two seconds.
func Health(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
