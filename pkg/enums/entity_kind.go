package enums

import (
	"fmt"
	"strings"
)

// EntityKind names the cultural entity types a user can own.
type EntityKind string

const (
	EntityKindAgent   EntityKind = "agent"
	EntityKindSpace   EntityKind = "space"
	EntityKindEvent   EntityKind = "event"
	EntityKindProject EntityKind = "project"
	EntityKindSeal    EntityKind = "seal"
	EntityKindSubsite EntityKind = "subsite"
	EntityKindUser    EntityKind = "user"
)

var validEntityKinds = []EntityKind{
	EntityKindAgent,
	EntityKindSpace,
	EntityKindEvent,
	EntityKindProject,
	EntityKindSeal,
	EntityKindSubsite,
	EntityKindUser,
}

// String implements fmt.Stringer.
func (k EntityKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known EntityKind.
func (k EntityKind) IsValid() bool {
	for _, candidate := range validEntityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// UsesTaxonomies reports whether entities of this kind carry term relations.
func (k EntityKind) UsesTaxonomies() bool {
	switch k {
	case EntityKindAgent, EntityKindSpace, EntityKindEvent, EntityKindProject:
		return true
	}
	return false
}

// IsOwnedThroughAgent reports whether the kind has an owner agent column.
func (k EntityKind) IsOwnedThroughAgent() bool {
	switch k {
	case EntityKindSpace, EntityKindEvent, EntityKindProject, EntityKindSeal:
		return true
	}
	return false
}

// ParseEntityKind accepts singular or plural names ("spaces", "agent").
func ParseEntityKind(value string) (EntityKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimSuffix(normalized, "s")
	for _, candidate := range validEntityKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", value)
}
