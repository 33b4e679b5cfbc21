package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/mapas-backend/api/middleware"
	"github.com/angelmondragon/mapas-backend/api/responses"
	"github.com/angelmondragon/mapas-backend/api/validators"
	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/internal/users"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

// UserResponse is a user together with its role grants.
type UserResponse struct {
	*users.UserDTO
	Roles []users.RoleDTO `json:"roles"`
}

func userResponse(u *models.User, baseURL string) UserResponse {
	return UserResponse{UserDTO: users.FromModel(u, baseURL), Roles: users.RolesFromModel(u.Roles)}
}

// optionalSubsite tells an absent subsite_id apart from an explicit null.
// Like ?subsite_id=, a value of 0 or below selects the main site.
type optionalSubsite struct {
	Set   bool
	Value *int64
}

func (o *optionalSubsite) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id <= 0 {
		o.Value = nil
		return nil
	}
	o.Value = &id
	return nil
}

func (o optionalSubsite) scope() users.Scope {
	if !o.Set {
		return users.CurrentSubsite()
	}
	return users.InSubsite(o.Value)
}

type profileRequest struct {
	AgentID int64 `json:"agent_id" validate:"required,gt=0"`
}

type addRoleRequest struct {
	Role      string          `json:"role" validate:"required,max=32"`
	SubsiteID optionalSubsite `json:"subsite_id"`
}

type metaRequest struct {
	Value string `json:"value" validate:"max=65535"`
}

// scopeFromQuery reads ?subsite_id=; absent means the request subsite and
// an empty value, 0 or "null" means the main site.
func scopeFromQuery(r *http.Request) (users.Scope, error) {
	id, present, err := validators.ParseQueryOptionalInt(r, "subsite_id")
	if err != nil {
		return users.Scope{}, err
	}
	if !present {
		return users.CurrentSubsite(), nil
	}
	if id <= 0 {
		return users.InSubsite(nil), nil
	}
	return users.InSubsite(&id), nil
}

// statusFromQuery reads ?status= as a status name or its numeric value.
func statusFromQuery(r *http.Request) (*enums.Status, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	if value, err := strconv.ParseInt(raw, 10, 16); err == nil {
		status := enums.Status(value)
		if !status.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", raw)
		}
		return &status, nil
	}
	status, err := enums.ParseStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
	}
	return &status, nil
}

func kindFromPath(r *http.Request) (enums.EntityKind, error) {
	kind, err := enums.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown entity collection")
	}
	return kind, nil
}

func writeRecords(w http.ResponseWriter, rows []entities.Record) {
	if rows == nil {
		rows = []entities.Record{}
	}
	responses.WriteSuccess(w, rows)
}

// GetMe returns the acting user.
func GetMe(svc users.Service, baseURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		user, err := svc.Get(r.Context(), actor, actor.ID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, userResponse(user, baseURL))
	}
}

func GetUser(svc users.Service, baseURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, userResponse(user, baseURL))
	}
}

// DeleteUser removes the account with its agents and everything they own.
func DeleteUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// SetUserProfile makes one of the user's agents its profile.
func SetUserProfile(svc users.Service, baseURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body profileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.SetProfile(r.Context(), middleware.ActorFromContext(r.Context()), userID, body.AgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, userResponse(user, baseURL))
	}
}

func AddUserRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body addRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.AddRole(r.Context(), middleware.ActorFromContext(r.Context()), userID, body.Role, body.SubsiteID.scope())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if created {
			responses.WriteCreated(w, map[string]bool{"created": true})
			return
		}
		responses.WriteSuccess(w, map[string]bool{"created": false})
	}
}

func RemoveUserRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scope, err := scopeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		removed, err := svc.RemoveRole(r.Context(), middleware.ActorFromContext(r.Context()), userID, chi.URLParam(r, "role"), scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": removed})
	}
}

// UserIs reports whether the user holds a role, honoring the role hierarchy.
func UserIs(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scope, err := scopeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := chi.URLParam(r, "role")
		ok, err := svc.Is(r.Context(), middleware.ActorFromContext(r.Context()), userID, role, scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"role": enums.NormalizeRoleName(role), "is": ok})
	}
}

func ListUserAgents(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := statusFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Agents(r.Context(), middleware.ActorFromContext(r.Context()), userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRecords(w, rows)
	}
}

// ListUserEntities serves /users/{userId}/{kind} for spaces, events,
// projects and seals.
func ListUserEntities(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := kindFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := statusFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Entities(r.Context(), middleware.ActorFromContext(r.Context()), userID, kind, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRecords(w, rows)
	}
}

// ListUserControlled returns entities the user may edit through agent
// relations with control.
func ListUserControlled(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := kindFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.HasControl(r.Context(), middleware.ActorFromContext(r.Context()), userID, kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRecords(w, rows)
	}
}

func ListUserControlAgents(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := kindFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.AgentsWithControl(r.Context(), middleware.ActorFromContext(r.Context()), userID, kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRecords(w, rows)
	}
}

func ListUserSubsites(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := statusFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Subsites(r.Context(), middleware.ActorFromContext(r.Context()), userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRecords(w, rows)
	}
}

// UserCan evaluates ?action= for the user against ?entity=&id=.
func UserCan(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		action := strings.TrimSpace(query.Get("action"))
		kind, err := enums.ParseEntityKind(query.Get("entity"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity").WithDetails(map[string]any{"field": "entity"}))
			return
		}
		entityID, err := strconv.ParseInt(strings.TrimSpace(query.Get("id")), 10, 64)
		if err != nil || entityID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "id must be a positive integer").WithDetails(map[string]any{"field": "id"}))
			return
		}
		ok, err := svc.Can(r.Context(), middleware.ActorFromContext(r.Context()), userID, action, kind, entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"action": action, "entity": kind, "id": entityID, "can": ok})
	}
}

func GetUserMeta(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := chi.URLParam(r, "key")
		value, err := svc.GetMeta(r.Context(), middleware.ActorFromContext(r.Context()), userID, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key, "value": value})
	}
}

func SetUserMeta(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body metaRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := chi.URLParam(r, "key")
		if err := svc.SetMeta(r.Context(), middleware.ActorFromContext(r.Context()), userID, key, body.Value); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key, "value": body.Value})
	}
}
