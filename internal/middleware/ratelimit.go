package middleware

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/realtime-chat/internal/config"
)

// NewFixedWindow returns a Redis-backed fixed-window rate limiter keyed by
// client IP and route.  It guards the credential endpoints against
// brute-force attempts.  When the limiter is disabled or Redis misbehaves,
// requests pass through: availability of login beats strictness here,
// because the bcrypt check is the actual gate.
func NewFixedWindow(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := cfg.Prefix + ":" + c.RealIP() + ":" + c.Path()
            ctx := c.Request().Context()

            // INCR creates the counter at 1; the first hit in a window also
            // sets the expiry so the window closes on its own.
            n, err := rdb.Incr(ctx, key).Result()
            if err != nil {
                return next(c)
            }
            if n == 1 {
                _ = rdb.Expire(ctx, key, cfg.Window).Err()
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
            remaining := int64(cfg.Limit) - n
            if remaining < 0 {
                remaining = 0
            }
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if n > int64(cfg.Limit) {
                retry := cfg.Window
                if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
                    retry = ttl
                }
                secs := int(retry / time.Second)
                if secs < 1 {
                    secs = 1
                }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "status":      "error",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}
