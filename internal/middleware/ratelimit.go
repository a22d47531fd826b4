package middleware

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/config"
)

// takeToken refills the bucket continuously at rate tokens per
// millisecond and spends one token.  Reply: {allowed, remaining, wait_ms}.
var takeToken = redis.NewScript(`
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local now = tonumber(ARGV[1])
local b = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(b[1]) or capacity
local ts = tonumber(b[2]) or now
if now > ts then
  tokens = math.min(capacity, tokens + (now - ts) * rate)
end
local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) / rate)
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {allowed, math.floor(tokens), wait}
`)

// NewTokenBucket throttles requests per key (see buildRateKey).  With no
// Redis client, or when the script fails, requests are let through and
// the failure is logged at debug level.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    interval := cfg.RefillInterval
    if interval < time.Millisecond {
        interval = time.Second
    }
    rate := float64(cfg.RefillTokens) / float64(interval.Milliseconds())
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            reply, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, rate, cfg.TTL.Milliseconds()).Result()
            allowed, remaining, waitMs, ok := parseBucketResult(reply)
            if err != nil || !ok {
                log.Debug("rate limiter skipped", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if allowed {
                return next(c)
            }
            secs := retryAfterSeconds(waitMs)
            h.Set("Retry-After", strconv.Itoa(secs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded", "retry_after": secs})
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func parseBucketResult(reply interface{}) (allowed bool, remaining, waitMs int64, ok bool) {
    arr, isArr := reply.([]interface{})
    if !isArr || len(arr) != 3 {
        return false, 0, 0, false
    }
    return asInt64(arr[0]) == 1, asInt64(arr[1]), asInt64(arr[2]), true
}

// retryAfterSeconds rounds a wait up to whole seconds.
func retryAfterSeconds(ms int64) int {
    if ms <= 0 {
        return 0
    }
    return int((ms + 999) / 1000)
}

func asInt64(v interface{}) int64 {
    switch n := v.(type) {
    case int64:
        return n
    case int:
        return int64(n)
    case string:
        i, _ := strconv.ParseInt(n, 10, 64)
        return i
    }
    return 0
}

// buildRateKey joins the prefix with the components named by the key
// strategy, e.g. "user_route" gives "<prefix>:user:<id>:route:<method path>".
// Unknown or empty strategies key on ip, user and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    for _, comp := range keyComponents(cfg.KeyStrategy) {
        switch comp {
        case "ip":
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            parts = append(parts, "ip", ip)
        case "user":
            parts = append(parts, "user", userKey(c))
        case "route":
            parts = append(parts, "route", c.Request().Method+" "+c.Path())
        }
    }
    return strings.Join(parts, ":")
}

func keyComponents(strategy string) []string {
    comps := strings.Split(strings.ToLower(strategy), "_")
    for _, comp := range comps {
        if comp != "ip" && comp != "user" && comp != "route" {
            return []string{"ip", "user", "route"}
        }
    }
    return comps
}
