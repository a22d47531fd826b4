package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/bookstore/bookstore-api/internal/config"
)

// cachedResponse is the value stored per catalog key.  Catalog handlers
// only ever answer JSON, so the content type is the one header kept.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// bodyRecorder tees the response to the client and to an in-memory
// buffer.  Once the body exceeds limit the buffer is dropped and the
// response is marked uncacheable.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// catalogKey hashes the request path and its query.  The query is
// re-encoded so parameter order does not split the cache.
func catalogKey(prefix string, c echo.Context) string {
    u := c.Request().URL
    sum := sha256.Sum256([]byte(u.Path + "?" + u.Query().Encode()))
    return prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache caches successful catalog responses for cfg.TTL.  Stock
// shown from the cache may be stale; checkout never reads it.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.MethodSet[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := catalogKey(cfg.Prefix, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      rec.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        rec.buf.Bytes(),
            })
            if err == nil {
                // the request may already be cancelled by the client
                _ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err()
            }
            return nil
        }
    }
}

// PurgeCache deletes every cached response under prefix.  Admin price
// and stock edits call it so the catalog reflects them before the TTL
// runs out.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
    if rdb == nil {
        return nil
    }
    const batch = 100
    iter := rdb.Scan(ctx, 0, prefix+":*", batch).Iterator()
    keys := make([]string, 0, batch)
    flush := func() error {
        if len(keys) == 0 {
            return nil
        }
        err := rdb.Unlink(ctx, keys...).Err()
        keys = keys[:0]
        return err
    }
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
        if len(keys) == batch {
            if err := flush(); err != nil {
                return err
            }
        }
    }
    if err := iter.Err(); err != nil {
        return err
    }
    return flush()
}
