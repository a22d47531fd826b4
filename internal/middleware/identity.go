package middleware

// identity.go holds the helpers shared across middleware files and
// handlers for reading the authenticated caller from the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/bookstore/bookstore-api/internal/access"
)

const identityKey = "identity"

// IdentityFrom returns the identity stored by JWTAuth.  ok is false for
// anonymous requests.
func IdentityFrom(c echo.Context) (access.Identity, bool) {
    id, ok := c.Get(identityKey).(access.Identity)
    if !ok || !id.Authenticated() {
        return access.Identity{}, false
    }
    return id, true
}

// SetIdentity stores id in the context.  It lets tests and internal
// callers bypass token parsing.
func SetIdentity(c echo.Context, id access.Identity) {
    c.Set(identityKey, id)
    c.Set("user_id", id.UserID)
    c.Set("role", string(id.Role))
}

// userKey identifies the caller for rate-limit keys.  It returns "anon"
// when no user is authenticated.
func userKey(c echo.Context) string {
    if id, ok := IdentityFrom(c); ok {
        return strconv.FormatUint(id.UserID, 10)
    }
    return "anon"
}
