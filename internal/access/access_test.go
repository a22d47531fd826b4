package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleCustomer, Checkout, true},
		{RoleCustomer, ManageCart, true},
		{RoleCustomer, ViewOwnOrders, true},
		{RoleCustomer, ManageOrders, false},
		{RoleCustomer, ManageInventory, false},
		{RoleAdmin, Checkout, false},
		{RoleAdmin, ManageOrders, true},
		{RoleAdmin, ManageInventory, true},
		{RoleAdmin, ManageUsers, true},
		{RoleCustomer, ManageUsers, false},
		{Role("GUEST"), Checkout, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DefaultPolicy.Allows(tc.role, tc.cap), "%s/%s", tc.role, tc.cap)
	}
}

func TestCheck(t *testing.T) {
	assert.ErrorIs(t, Check(DefaultPolicy, Identity{}, Checkout), ErrUnauthenticated)
	assert.ErrorIs(t, Check(DefaultPolicy, Identity{UserID: 1, Role: RoleAdmin}, Checkout), ErrNotAllowed)
	assert.NoError(t, Check(DefaultPolicy, Identity{UserID: 1, Role: RoleCustomer}, Checkout))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("ADMIN")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("OWNER")
	assert.False(t, ok)
}
