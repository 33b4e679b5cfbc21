// Package roles resolves role membership, including the built-in hierarchy
// saasSuperAdmin > saasAdmin > superAdmin > admin.
package roles

import (
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// Is reports whether held grants role within subsiteID. Global roles ignore
// subsiteID; all others match the subsite exactly, and a nil subsite only
// matches roles without one. Implied parents (superAdmin for admin, and so
// on) are looked up in current, the subsite the request is served from,
// whatever subsiteID asks for.
func Is(held []models.Role, role string, subsiteID, current *int64) bool {
	role = enums.NormalizeRoleName(role)
	if parent, ok := enums.ImpliedBy(role); ok && Is(held, parent, current, current) {
		return true
	}

	scope := subsiteID
	if enums.IsGlobalRole(role) {
		scope = nil
	}
	return Find(held, role, scope) >= 0
}

// Find returns the index of the first role named role with exactly the
// given subsite, or -1.
func Find(held []models.Role, role string, subsiteID *int64) int {
	for i, candidate := range held {
		if candidate.Name == role && SameSubsite(candidate.SubsiteID, subsiteID) {
			return i
		}
	}
	return -1
}

// SameSubsite compares optional subsite ids; nil equals only nil.
func SameSubsite(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ScopeFor returns the subsite a role row is stored under.
func ScopeFor(role string, subsiteID *int64) *int64 {
	if enums.IsGlobalRole(enums.NormalizeRoleName(role)) {
		return nil
	}
	return subsiteID
}
