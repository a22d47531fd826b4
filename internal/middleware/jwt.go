package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/bookstore/bookstore-api/internal/access"
    "github.com/bookstore/bookstore-api/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's access.Identity in the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers
// read the identity with IdentityFrom; "user_id" (uint64) and "role"
// (string) are set as well for code that only needs one of them.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            uid, roleClaim, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            role, ok := access.ParseRole(roleClaim)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            c.Set(identityKey, access.Identity{UserID: uid, Role: role})
            c.Set("user_id", uid)
            c.Set("role", string(role))
            return next(c)
        }
    }
}
