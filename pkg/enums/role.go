package enums

import "strings"

// Role names understood by the authorization layer. Any other string is a
// valid custom role scoped to a subsite.
const (
	RoleGuest          = "guest"
	RoleAdmin          = "admin"
	RoleSuperAdmin     = "superAdmin"
	RoleSaasAdmin      = "saasAdmin"
	RoleSaasSuperAdmin = "saasSuperAdmin"
)

// impliedBy maps a role to the role that implicitly grants it.
var impliedBy = map[string]string{
	RoleAdmin:      RoleSuperAdmin,
	RoleSuperAdmin: RoleSaasAdmin,
	RoleSaasAdmin:  RoleSaasSuperAdmin,
}

// ImpliedBy returns the role that includes role, if any.
func ImpliedBy(role string) (string, bool) {
	parent, ok := impliedBy[role]
	return parent, ok
}

// IsGlobalRole reports whether the role ignores subsite scoping.
func IsGlobalRole(role string) bool {
	return role == RoleSaasAdmin || role == RoleSaasSuperAdmin
}

// NormalizeRoleName trims input and restores the canonical casing of the
// built-in roles ("superadmin" becomes "superAdmin").
func NormalizeRoleName(value string) string {
	trimmed := strings.TrimSpace(value)
	for _, known := range []string{RoleGuest, RoleAdmin, RoleSuperAdmin, RoleSaasAdmin, RoleSaasSuperAdmin} {
		if strings.EqualFold(trimmed, known) {
			return known
		}
	}
	return trimmed
}
