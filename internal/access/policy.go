package access

import (
	"strings"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
)

// Actions shared across entity policies.
const (
	ActionView          = "view"
	ActionViewPrivate   = "viewPrivateData"
	ActionCreate        = "create"
	ActionModify        = "modify"
	ActionRemove        = "remove"
	ActionChangeProfile = "changeProfile"
	ActionAddRole       = "addRole"
	ActionRemoveRole    = "removeRole"
)

// Policy is implemented by every entity that can answer permission checks.
type Policy interface {
	CanUser(action string, actor Actor) bool
}

// Can asks target whether actor may perform action.
func Can(actor Actor, action string, target Policy) bool {
	if target == nil {
		return false
	}
	return target.CanUser(action, actor)
}

// Check returns a forbidden error naming action when the check fails.
func Check(actor Actor, action string, target Policy) error {
	if Can(actor, action, target) {
		return nil
	}
	return pkgerrors.PermissionDenied(action)
}

// RolePermission names the permission guarding a role change: the
// role-specific variant (addRoleAdmin) when one exists, else the generic one.
func RolePermission(base, role string) string {
	role = enums.NormalizeRoleName(role)
	if _, ok := roleRules[role]; ok {
		return base + strings.ToUpper(role[:1]) + role[1:]
	}
	return base
}

// roleRules maps a built-in role to the role an actor needs to grant or
// revoke it.
var roleRules = map[string]string{
	enums.RoleAdmin:          enums.RoleSuperAdmin,
	enums.RoleSuperAdmin:     enums.RoleSuperAdmin,
	enums.RoleSaasAdmin:      enums.RoleSaasSuperAdmin,
	enums.RoleSaasSuperAdmin: enums.RoleSaasSuperAdmin,
}

// UserPolicy applies the permission rules for a user account.
type UserPolicy struct {
	Target *models.User
}

func (p UserPolicy) CanUser(action string, actor Actor) bool {
	if p.Target == nil {
		return false
	}
	if action == ActionCreate {
		return actor.IsAnonymous() || actor.Is(enums.RoleGuest)
	}
	if actor.IsAnonymous() {
		return action == ActionView
	}

	notSelf := !actor.IsUser(p.Target.ID)
	switch action {
	case ActionView:
		return true
	case ActionAddRole, ActionRemoveRole:
		return actor.Is(enums.RoleAdmin) && notSelf
	}
	for _, base := range []string{ActionAddRole, ActionRemoveRole} {
		if !strings.HasPrefix(action, base) {
			continue
		}
		role := enums.NormalizeRoleName(strings.TrimPrefix(action, base))
		if required, ok := roleRules[role]; ok {
			return actor.Is(required) && notSelf
		}
	}
	// modify, changeProfile, viewPrivateData and anything unlisted.
	return actor.IsUser(p.Target.ID) || actor.IsAdmin()
}

// OwnedPolicy applies to entities owned through an agent: the owner's user or
// an admin may change them, and public statuses are viewable by anyone.
type OwnedPolicy struct {
	Kind        enums.EntityKind
	OwnerUserID int64
	Status      enums.Status
}

func (p OwnedPolicy) CanUser(action string, actor Actor) bool {
	if action == ActionView && p.Status.IsPublic() {
		return true
	}
	if actor.IsAnonymous() {
		return false
	}
	if p.Kind == enums.EntityKindSubsite && actor.Is(enums.RoleSaasAdmin) {
		return true
	}
	if action == ActionCreate {
		return true
	}
	return actor.IsUser(p.OwnerUserID) || actor.IsAdmin()
}
