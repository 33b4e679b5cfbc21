package enums

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state shared by users and cultural entities.
type Status int16

const (
	StatusEnabled  Status = 1
	StatusDraft    Status = 0
	StatusRelated  Status = -1
	StatusArchived Status = -2
	StatusInvited  Status = -3
	StatusDisabled Status = -9
	StatusTrash    Status = -10
)

var statusNames = map[Status]string{
	StatusEnabled:  "enabled",
	StatusDraft:    "draft",
	StatusRelated:  "related",
	StatusArchived: "archived",
	StatusInvited:  "invited",
	StatusDisabled: "disabled",
	StatusTrash:    "trash",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int16(s))
}

// IsPublic reports whether entities in this status are listed publicly.
func (s Status) IsPublic() bool {
	return s > 0
}

// IsValid reports whether the value is a known Status.
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus converts a status name ("draft", "trashed" is accepted for
// trash) into a Status.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "trashed" {
		normalized = "trash"
	}
	for status, name := range statusNames {
		if name == normalized {
			return status, nil
		}
	}
	return 0, fmt.Errorf("invalid status %q", value)
}
