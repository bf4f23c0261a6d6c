package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
	}{
		{"MANAGER", RoleManager},
		{"manager", RoleManager},
		{"ROLE_MANAGER", RoleManager},
		{"role_manager", RoleManager},
		{"ADMIN", RoleManager},
		{"SALES", RoleSales},
		{"ROLE_SALES", RoleSales},
		{"BUYER", RoleBuyer},
		{"PURCHASING", RoleBuyer},
		{"VIEWER", RoleViewer},
		{"  sales  ", RoleSales},
		{"something-else", RoleViewer},
		{"", RoleViewer},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeRole(tc.raw), "raw=%q", tc.raw)
	}
}

func TestNewRoleSet(t *testing.T) {
	set := NewRoleSet("ROLE_MANAGER", "sales", "", "MANAGER")
	assert.True(t, set.Has(RoleManager))
	assert.True(t, set.Has(RoleSales))
	assert.False(t, set.Has(RoleBuyer))
	assert.Len(t, set, 2, "duplicates and blanks collapse")
}

func TestRoleSetNamesDeterministic(t *testing.T) {
	set := NewRoleSet("VIEWER", "SALES", "MANAGER")
	assert.Equal(t, []string{"MANAGER", "SALES", "VIEWER"}, set.Names())
}
