package entities

import (
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// Record is the kind-agnostic view of an owned entity returned by listings.
type Record struct {
	Kind             enums.EntityKind  `json:"kind"`
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	ShortDescription *string           `json:"short_description,omitempty"`
	Status           enums.Status      `json:"status"`
	OwnerID          *int64            `json:"owner_id,omitempty"`
	SubsiteID        *int64            `json:"subsite_id,omitempty"`
	CreateTimestamp  time.Time         `json:"create_timestamp"`
	UpdateTimestamp  *time.Time        `json:"update_timestamp,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Terms            []Term            `json:"terms,omitempty"`
}

// Term is a taxonomy term attached to an entity.
type Term struct {
	Taxonomy string `json:"taxonomy"`
	Term     string `json:"term"`
}

func metaMap(rows []models.EntityMeta) map[string]string {
	if len(rows) == 0 {
		return nil
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out
}

func termList(rows []models.TermRelation) []Term {
	var out []Term
	for _, row := range rows {
		if row.Term == nil {
			continue
		}
		out = append(out, Term{Taxonomy: row.Term.Taxonomy, Term: row.Term.Term})
	}
	return out
}

// FromAgent converts an agent into a Record.
func FromAgent(a models.Agent) Record {
	return Record{
		Kind:             enums.EntityKindAgent,
		ID:               a.ID,
		Name:             a.Name,
		ShortDescription: a.ShortDescription,
		Status:           a.Status,
		OwnerID:          a.ParentID,
		SubsiteID:        a.SubsiteID,
		CreateTimestamp:  a.CreateTimestamp,
		UpdateTimestamp:  a.UpdateTimestamp,
		Metadata:         metaMap(a.Metadata),
		Terms:            termList(a.Terms),
	}
}

func fromOwned(kind enums.EntityKind, e models.OwnedEntity, meta []models.EntityMeta, terms []models.TermRelation) Record {
	owner := e.OwnerID
	return Record{
		Kind:             kind,
		ID:               e.ID,
		Name:             e.Name,
		ShortDescription: e.ShortDescription,
		Status:           e.Status,
		OwnerID:          &owner,
		SubsiteID:        e.SubsiteID,
		CreateTimestamp:  e.CreateTimestamp,
		UpdateTimestamp:  e.UpdateTimestamp,
		Metadata:         metaMap(meta),
		Terms:            termList(terms),
	}
}

func FromSpace(s models.Space) Record {
	return fromOwned(enums.EntityKindSpace, s.OwnedEntity, s.Metadata, s.Terms)
}

func FromEvent(e models.Event) Record {
	return fromOwned(enums.EntityKindEvent, e.OwnedEntity, e.Metadata, e.Terms)
}

func FromProject(p models.Project) Record {
	return fromOwned(enums.EntityKindProject, p.OwnedEntity, p.Metadata, p.Terms)
}

func FromSeal(s models.Seal) Record {
	return fromOwned(enums.EntityKindSeal, s.OwnedEntity, s.Metadata, nil)
}

func FromSubsite(s models.Subsite) Record {
	return Record{
		Kind:            enums.EntityKindSubsite,
		ID:              s.ID,
		Name:            s.Name,
		Status:          s.Status,
		OwnerID:         s.OwnerID,
		CreateTimestamp: s.CreateTimestamp,
	}
}

func mapRecords[T any](rows []T, convert func(T) Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, convert(row))
	}
	return out
}
