package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/bookstore/bookstore-api/internal/access"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  It assumes JWTAuth
// ran before it.  Anonymous callers get 401, other roles 403.
func RequireRole(roles ...access.Role) echo.MiddlewareFunc {
    allowed := make(map[access.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
            }
            if !allowed[id.Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

// RequireCapability gates a route on a capability of the caller's role
// as decided by policy.
func RequireCapability(policy access.Policy, capability access.Capability) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, _ := IdentityFrom(c)
            switch access.Check(policy, id, capability) {
            case nil:
                return next(c)
            case access.ErrUnauthenticated:
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
            default:
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
        }
    }
}
