// Package access maps authenticated identities to the capabilities they
// hold.  Route gates and the checkout service ask the same Policy, so the
// rules live in one place instead of being spread over route
// registrations.
package access

import "errors"

// Role is the account role carried in the access token.
type Role string

const (
    RoleCustomer Role = "CUSTOMER"
    RoleAdmin    Role = "ADMIN"
)

// ParseRole converts a role claim into a Role.  Unknown values are
// rejected.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleCustomer, RoleAdmin:
        return Role(s), true
    }
    return "", false
}

// Capability names an action a caller may be allowed to perform.
type Capability string

const (
    Checkout        Capability = "checkout"
    ManageCart      Capability = "cart:manage"
    ViewOwnOrders   Capability = "orders:read-own"
    ManageOrders    Capability = "orders:manage"
    ManageInventory Capability = "inventory:manage"
    ManageUsers     Capability = "users:manage"
)

// Identity is the authenticated caller of a request.  The zero value is
// an anonymous caller.
type Identity struct {
    UserID uint64
    Role   Role
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (i Identity) Authenticated() bool { return i.UserID != 0 && i.Role != "" }

// Policy decides whether a role holds a capability.
type Policy interface {
    Allows(role Role, c Capability) bool
}

// RolePolicy is a static role to capability table.
type RolePolicy map[Role][]Capability

// Allows implements Policy.
func (p RolePolicy) Allows(role Role, c Capability) bool {
    for _, have := range p[role] {
        if have == c {
            return true
        }
    }
    return false
}

// DefaultPolicy grants customers shopping capabilities and admins the
// back-office ones.  Admins do not check out.
var DefaultPolicy = RolePolicy{
    RoleCustomer: {Checkout, ManageCart, ViewOwnOrders},
    RoleAdmin:    {ManageOrders, ManageInventory, ManageUsers},
}

var (
    ErrUnauthenticated = errors.New("authentication required")
    ErrNotAllowed      = errors.New("not allowed")
)

// Check returns nil when id may use c, ErrUnauthenticated for anonymous
// callers and ErrNotAllowed otherwise.
func Check(p Policy, id Identity, c Capability) error {
    if !id.Authenticated() {
        return ErrUnauthenticated
    }
    if !p.Allows(id.Role, c) {
        return ErrNotAllowed
    }
    return nil
}
