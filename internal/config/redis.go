package config

// Redis backs the distributed rate limiter and the search response cache.
// Both degrade gracefully: when the server cannot be reached at startup the
// constructor returns nil and the middleware falls back or disables itself.

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
//
// Without any of REDIS_HOST/REDIS_ADDR Redis is considered disabled and nil
// is returned without dialing.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" {
		if port == "" {
			port = "6379"
		}
		addr = host + ":" + port
	}
	if addr == "" {
		return nil
	}
	dbNum, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, rate limiting falls back to memory and caching is off", "addr", addr, "err", err)
		_ = client.Close()
		return nil
	}
	return client
}
