package domain

// Role is the authorization level carried on accounts and in token claims.
type Role int

const (
	RoleCustomer Role = iota
	RoleAdmin
	RoleSystemAdmin
)

var roleNames = map[Role]string{
	RoleCustomer:    "Customer",
	RoleAdmin:       "Admin",
	RoleSystemAdmin: "System Admin",
}

// Roles lists every defined role, lowest privilege first.
func Roles() []Role {
	return []Role{RoleCustomer, RoleAdmin, RoleSystemAdmin}
}

// String returns the canonical display name used for storage and claims.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleCustomer]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole maps a display name back to its Role. Unrecognized names resolve
// to RoleCustomer and ok is false so callers can report the fallback.
func ParseRole(name string) (role Role, ok bool) {
	for r, n := range roleNames {
		if n == name {
			return r, true
		}
	}
	return RoleCustomer, false
}
