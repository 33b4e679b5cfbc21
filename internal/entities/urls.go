package entities

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// slugs are the public URL segments of each kind.
var slugs = map[enums.EntityKind]string{
	enums.EntityKindAgent:   "agente",
	enums.EntityKindSpace:   "espaco",
	enums.EntityKindEvent:   "evento",
	enums.EntityKindProject: "projeto",
	enums.EntityKindSeal:    "selo",
}

func slugFor(kind enums.EntityKind) string {
	if slug, ok := slugs[kind]; ok {
		return slug
	}
	return string(kind)
}

// SingleURL is the public page of an entity.
func SingleURL(baseURL string, kind enums.EntityKind, id int64) string {
	return fmt.Sprintf("%s/%s/%d/", strings.TrimRight(baseURL, "/"), slugFor(kind), id)
}

// EditURL is the edit page of an entity.
func EditURL(baseURL string, kind enums.EntityKind, id int64) string {
	return fmt.Sprintf("%s/%s/edita/%d/", strings.TrimRight(baseURL, "/"), slugFor(kind), id)
}
