// Package access evaluates who may perform an action on a user or an
// owned cultural entity.
package access

import (
	"github.com/angelmondragon/mapas-backend/internal/roles"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// Actor is the caller of an operation. A nil User means anonymous.
// SubsiteID is the subsite the request was served from.
type Actor struct {
	User      *models.User
	SubsiteID *int64
}

// Anonymous returns an actor without a user bound to subsiteID.
func Anonymous(subsiteID *int64) Actor {
	return Actor{SubsiteID: subsiteID}
}

// ForUser builds an actor for user in the given subsite. user.Roles must be
// loaded.
func ForUser(user *models.User, subsiteID *int64) Actor {
	return Actor{User: user, SubsiteID: subsiteID}
}

func (a Actor) IsAnonymous() bool {
	return a.User == nil
}

// ID returns the acting user id, or zero when anonymous.
func (a Actor) ID() int64 {
	if a.User == nil {
		return 0
	}
	return a.User.ID
}

// Is reports whether the actor holds role in the current subsite.
func (a Actor) Is(role string) bool {
	if a.User == nil {
		return false
	}
	return roles.Is(a.User.Roles, role, a.SubsiteID, a.SubsiteID)
}

// IsUser reports whether the actor is the user with id.
func (a Actor) IsUser(id int64) bool {
	return a.User != nil && id > 0 && a.User.ID == id
}

// IsAdmin is shorthand for Is(admin).
func (a Actor) IsAdmin() bool {
	return a.Is(enums.RoleAdmin)
}
