package auth

import "strings"

// Role is the canonical role identifier used throughout the application.
// Backends historically reported the same role under several spellings
// ("MANAGER", "ROLE_MANAGER"); normalization happens once here so the rest
// of the code never compares raw strings.
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleSales   Role = "SALES"
	RoleBuyer   Role = "BUYER"
	RoleViewer  Role = "VIEWER"
)

// NormalizeRole maps a raw role string from storage to a canonical Role.
// Unknown values map to RoleViewer.
func NormalizeRole(raw string) Role {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "ROLE_")
	switch name {
	case "MANAGER", "ADMIN":
		return RoleManager
	case "SALES":
		return RoleSales
	case "BUYER", "PURCHASING":
		return RoleBuyer
	case "VIEWER":
		return RoleViewer
	default:
		return RoleViewer
	}
}

// RoleSet is the set of canonical roles granted to a user.
type RoleSet map[Role]struct{}

// NewRoleSet normalizes raw role names into a RoleSet.
func NewRoleSet(raw ...string) RoleSet {
	set := make(RoleSet, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		set[NormalizeRole(r)] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the given role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Names returns role names in deterministic order for storage.
func (s RoleSet) Names() []string {
	ordered := []Role{RoleManager, RoleSales, RoleBuyer, RoleViewer}
	names := make([]string, 0, len(s))
	for _, r := range ordered {
		if s.Has(r) {
			names = append(names, string(r))
		}
	}
	return names
}
