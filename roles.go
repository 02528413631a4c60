package identity

var roleHierarchy = map[UserRole]int{
	RoleMember: 0,
	RoleAdmin:  1,
	RoleOwner:  2,
}

// ValidRole checks if the role is one of the predefined valid roles
func ValidRole(r UserRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// RoleAtLeast checks if the role meets the minimum required level.
// Unknown roles never qualify.
func RoleAtLeast(r, minRole UserRole) bool {
	current, ok := roleHierarchy[r]
	if !ok {
		return false
	}
	min, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return current >= min
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []UserRole {
	return []UserRole{
		RoleMember,
		RoleAdmin,
		RoleOwner,
	}
}

// ParseRole safely parses a string into a known role
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, ValidRole(role)
}
