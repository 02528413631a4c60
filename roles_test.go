package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskvine/identity"
)

func TestParseRole(t *testing.T) {
	for _, role := range identity.AllRoles() {
		parsed, ok := identity.ParseRole(role)
		assert.True(t, ok)
		assert.Equal(t, role, parsed)
	}

	_, ok := identity.ParseRole("superuser")
	assert.False(t, ok)

	_, ok = identity.ParseRole("")
	assert.False(t, ok)
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, identity.RoleAtLeast(identity.RoleOwner, identity.RoleMember))
	assert.True(t, identity.RoleAtLeast(identity.RoleAdmin, identity.RoleAdmin))
	assert.False(t, identity.RoleAtLeast(identity.RoleMember, identity.RoleAdmin))
	assert.False(t, identity.RoleAtLeast("superuser", identity.RoleMember))
	assert.False(t, identity.RoleAtLeast(identity.RoleOwner, "superuser"))
}
