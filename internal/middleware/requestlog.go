package middleware

import (
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/metrics"
)

// RequestID tags every request with an X-Request-ID, keeping one supplied
// by the client.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
    })
}

// RequestLog writes one structured log line per request and records it in
// m.  The route label is the registered path, not the raw URL, so label
// cardinality stays bounded.
func RequestLog(log *zap.Logger, m *metrics.ServerMetrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            elapsed := time.Since(start)
            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            if m != nil {
                m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
                m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
            }
            fields := []zap.Field{
                zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
                zap.String("method", c.Request().Method),
                zap.String("route", route),
                zap.Int("status", status),
                zap.Duration("elapsed", elapsed),
            }
            if uid, ok := c.Get("user_id").(uint64); ok {
                fields = append(fields, zap.Uint64("user_id", uid))
            }
            if status >= 500 {
                log.Error("request", fields...)
            } else {
                log.Info("request", fields...)
            }
            return nil
        }
    }
}
