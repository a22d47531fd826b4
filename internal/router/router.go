package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/bookstore/bookstore-api/internal/access"
	"github.com/bookstore/bookstore-api/internal/handler"
	"github.com/bookstore/bookstore-api/internal/metrics"
	"github.com/bookstore/bookstore-api/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: liveness,
// readiness against the database and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers all authentication-related routes.  Register,
// login, refresh and logout live under /v1/auth and need no session;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout accepts either a bearer token (all sessions) or a
	// refresh_token in the body (that session only)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(access.RoleCustomer, access.RoleAdmin))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated catalog endpoints.  cache
// is the Redis response cache; admin writes purge it.
func RegisterPublic(e *echo.Echo, b *handler.BookHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/books", cache)
	g.GET("", b.List)
	g.GET("/:id", b.Get)
}
