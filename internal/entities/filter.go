package entities

import "github.com/angelmondragon/mapas-backend/pkg/enums"

// StatusFilter selects entities by status: either exactly Status, or every
// status greater than it.
type StatusFilter struct {
	Status enums.Status
	Exact  bool
}

// Public selects every entity with a public status (status > 0).
func Public() StatusFilter {
	return StatusFilter{Status: enums.StatusDraft}
}

// Only selects entities with exactly status.
func Only(status enums.Status) StatusFilter {
	return StatusFilter{Status: status, Exact: true}
}

// FilterFor maps an optional requested status onto a filter.
func FilterFor(status *enums.Status) StatusFilter {
	if status == nil {
		return Public()
	}
	return Only(*status)
}

func (f StatusFilter) clause(column string) (string, enums.Status) {
	if f.Exact {
		return column + " = ?", f.Status
	}
	return column + " > ?", f.Status
}

// Matches reports whether status passes the filter.
func (f StatusFilter) Matches(status enums.Status) bool {
	if f.Exact {
		return status == f.Status
	}
	return status > f.Status
}
