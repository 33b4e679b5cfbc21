package users

import (
	"time"

	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// UserDTO is the transport shape of a user. The provider uid stays private.
type UserDTO struct {
	ID                 int64        `json:"id"`
	AuthProvider       int16        `json:"auth_provider"`
	Email              string       `json:"email"`
	LastLoginTimestamp *time.Time   `json:"last_login_timestamp,omitempty"`
	CreateTimestamp    time.Time    `json:"create_timestamp"`
	Status             enums.Status `json:"status"`
	ProfileID          *int64       `json:"profile_id,omitempty"`
	Profile            *ProfileDTO  `json:"profile,omitempty"`
}

// ProfileDTO is the simplified profile agent embedded in a user.
type ProfileDTO struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	Type      int16               `json:"type"`
	Terms     map[string][]string `json:"terms"`
	Avatar    *string             `json:"avatar"`
	SingleURL string              `json:"single_url"`
}

// RoleDTO is the transport shape of a role grant.
type RoleDTO struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	SubsiteID       *int64    `json:"subsite_id"`
	CreateTimestamp time.Time `json:"create_timestamp"`
}

func FromModel(u *models.User, baseURL string) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:                 u.ID,
		AuthProvider:       u.AuthProvider,
		Email:              u.Email,
		LastLoginTimestamp: u.LastLoginTimestamp,
		CreateTimestamp:    u.CreateTimestamp,
		Status:             u.Status,
		ProfileID:          u.ProfileID,
	}
	if u.Profile != nil {
		dto.Profile = profileFromAgent(u.Profile, baseURL)
	}
	return dto
}

func profileFromAgent(a *models.Agent, baseURL string) *ProfileDTO {
	terms := map[string][]string{}
	for _, rel := range a.Terms {
		if rel.Term == nil {
			continue
		}
		terms[rel.Term.Taxonomy] = append(terms[rel.Term.Taxonomy], rel.Term.Term)
	}
	var avatar *string
	for _, meta := range a.Metadata {
		if meta.Key == "avatar" && meta.Value != "" {
			value := meta.Value
			avatar = &value
			break
		}
	}
	return &ProfileDTO{
		ID:        a.ID,
		Name:      a.Name,
		Type:      a.Type,
		Terms:     terms,
		Avatar:    avatar,
		SingleURL: entities.SingleURL(baseURL, enums.EntityKindAgent, a.ID),
	}
}

func RolesFromModel(rows []models.Role) []RoleDTO {
	out := make([]RoleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RoleDTO{
			ID:              row.ID,
			Name:            row.Name,
			SubsiteID:       row.SubsiteID,
			CreateTimestamp: row.CreateTimestamp,
		})
	}
	return out
}
