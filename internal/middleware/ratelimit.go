package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
)

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one bucket check.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type bucket interface {
	take(c echo.Context, key string) (decision, error)
}

// NewTokenBucket limits requests per key (see RateLimitConfig.KeyStrategy).
// Buckets live in Redis when rdb is non-nil and in process memory
// otherwise.  Over-limit requests get 429 with Retry-After.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	var b bucket
	if rdb != nil {
		b = &redisBucket{cfg: cfg, rdb: rdb}
	} else {
		b = newLocalBucket(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := b.take(c, key)
			if err != nil {
				// fail open
				if cfg.Debug {
					slog.Warn("ratelimit: bucket error", "key", key, "err", err)
				}
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					slog.Info("ratelimit: blocked", "key", key, "retry_after", secs)
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}
			if cfg.Debug {
				c.Response().Header().Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}

type redisBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b *redisBucket) take(c echo.Context, key string) (decision, error) {
	args := []interface{}{
		time.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}
	vals, err := tokenBucketScript.Run(c.Request().Context(), b.rdb, []string{key}, args...).Result()
	if err != nil {
		return decision{}, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return decision{}, fmt.Errorf("unexpected script result %#v", vals)
	}
	return decision{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

// localBucket keeps one rate.Limiter per key and forgets keys idle for
// longer than the configured TTL.
type localBucket struct {
	cfg     config.RateLimitConfig
	mu      sync.Mutex
	clients map[string]*localClient
	swept   time.Time
}

type localClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalBucket(cfg config.RateLimitConfig) *localBucket {
	return &localBucket{cfg: cfg, clients: make(map[string]*localClient), swept: time.Now()}
}

func (b *localBucket) take(_ echo.Context, key string) (decision, error) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.swept) > b.cfg.TTL {
		for k, cl := range b.clients {
			if now.Sub(cl.lastSeen) > b.cfg.TTL {
				delete(b.clients, k)
			}
		}
		b.swept = now
	}

	cl, ok := b.clients[key]
	if !ok {
		cl = &localClient{limiter: rate.NewLimiter(rate.Limit(b.cfg.RatePerSecond()), b.cfg.Capacity)}
		b.clients[key] = cl
	}
	cl.lastSeen = now

	r := cl.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{allowed: false, remaining: 0, retry: delay}, nil
	}
	remaining := int64(cl.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return decision{allowed: true, remaining: remaining}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := currentUserKey(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
