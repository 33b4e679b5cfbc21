package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/mapas-backend/internal/access"
	"github.com/angelmondragon/mapas-backend/internal/auth/providers"
	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/internal/roles"
	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// ProtectedMetaPrefix marks metadata keys that only the auth layer may
// read or write.
const ProtectedMetaPrefix = "localAuthentication"

const maxMetaKeyLen = 128

// Service exposes the user operations used by the HTTP layer and auth.
type Service interface {
	Get(ctx context.Context, actor access.Actor, id int64) (*models.User, error)
	Create(ctx context.Context, actor access.Actor, input CreateInput) (*models.User, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	EntityTypeLabel(tag language.Tag, plural bool) string
	SetAuthProvider(user *models.User, name string) error
	SetProfile(ctx context.Context, actor access.Actor, userID, agentID int64) (*models.User, error)
	AddRole(ctx context.Context, actor access.Actor, userID int64, role string, scope Scope) (bool, error)
	RemoveRole(ctx context.Context, actor access.Actor, userID int64, role string, scope Scope) (bool, error)
	Is(ctx context.Context, actor access.Actor, userID int64, role string, scope Scope) (bool, error)
	Can(ctx context.Context, actor access.Actor, userID int64, action string, kind enums.EntityKind, entityID int64) (bool, error)
	Agents(ctx context.Context, actor access.Actor, userID int64, status *enums.Status) ([]entities.Record, error)
	Entities(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind, status *enums.Status) ([]entities.Record, error)
	HasControl(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind) ([]entities.Record, error)
	AgentsWithControl(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind) ([]entities.Record, error)
	Subsites(ctx context.Context, actor access.Actor, userID int64, status *enums.Status) ([]entities.Record, error)
	GetMeta(ctx context.Context, actor access.Actor, userID int64, key string) (string, error)
	SetMeta(ctx context.Context, actor access.Actor, userID int64, key, value string) error
}

// CreateInput describes a new account and its profile agent.
type CreateInput struct {
	Provider    string
	AuthUID     string
	Email       string
	ProfileName string
}

// Scope selects the subsite a role operation applies to. The zero value
// means the subsite of the current request.
type Scope struct {
	SubsiteID *int64
	Explicit  bool
}

// CurrentSubsite scopes to the subsite the request was served from.
func CurrentSubsite() Scope {
	return Scope{}
}

// InSubsite scopes to id; nil selects roles without a subsite.
func InSubsite(id *int64) Scope {
	return Scope{SubsiteID: id, Explicit: true}
}

func (s Scope) resolve(actor access.Actor) *int64 {
	if s.Explicit {
		return s.SubsiteID
	}
	return actor.SubsiteID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Users     Repository
	Roles     roles.Repository
	Entities  entities.Repository
	Providers *providers.Registry
	TxRunner  txRunner
}

type service struct {
	users     Repository
	roles     roles.Repository
	entities  entities.Repository
	providers *providers.Registry
	tx        txRunner
}

var (
	agentStatuses = []enums.Status{
		enums.StatusEnabled, enums.StatusDraft, enums.StatusTrash, enums.StatusDisabled,
		enums.StatusInvited, enums.StatusRelated, enums.StatusArchived,
	}
	entityStatuses = []enums.Status{
		enums.StatusEnabled, enums.StatusDraft, enums.StatusTrash, enums.StatusDisabled, enums.StatusArchived,
	}
)

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Roles == nil {
		return nil, fmt.Errorf("roles repository is required")
	}
	if params.Entities == nil {
		return nil, fmt.Errorf("entities repository is required")
	}
	if params.Providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		users:     params.Users,
		roles:     params.Roles,
		entities:  params.Entities,
		providers: params.Providers,
		tx:        params.TxRunner,
	}, nil
}

func (s *service) load(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id int64) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.ActionView, access.UserPolicy{Target: user}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateInput) (*models.User, error) {
	if err := access.Check(actor, access.ActionCreate, access.UserPolicy{Target: &models.User{}}); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.ProfileName)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile name is required")
	}

	user := &models.User{Email: email, Status: enums.StatusEnabled, AuthUID: strings.TrimSpace(input.AuthUID)}
	if err := s.SetAuthProvider(user, input.Provider); err != nil {
		return nil, err
	}
	if user.AuthUID == "" {
		user.AuthUID = uuid.NewString()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if err := users.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		profile := &models.Agent{UserID: user.ID, Type: 1, Name: name, Status: enums.StatusEnabled, SubsiteID: actor.SubsiteID}
		if err := s.entities.WithTx(tx).CreateAgent(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile agent")
		}
		if err := users.UpdateProfile(ctx, user.ID, profile.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, user.ID)
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Check(actor, access.ActionRemove, access.UserPolicy{Target: user}); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Delete(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		return nil
	})
}

func (s *service) EntityTypeLabel(tag language.Tag, plural bool) string {
	if plural {
		return i18n.Sprintf(tag, i18n.KeyUserPlural)
	}
	return i18n.Sprintf(tag, i18n.KeyUserSingular)
}

func (s *service) SetAuthProvider(user *models.User, name string) error {
	id, ok := s.providers.IDOf(name)
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown auth provider %q", name)
	}
	user.AuthProvider = id
	return nil
}

func (s *service) SetProfile(ctx context.Context, actor access.Actor, userID, agentID int64) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.ActionChangeProfile, access.UserPolicy{Target: user}); err != nil {
		return nil, err
	}

	agent, err := s.entities.FindAgent(ctx, agentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.UserID != user.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent does not belong to user")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdateProfile(ctx, user.ID, agent.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
		if err := s.entities.WithTx(tx).ClearParent(ctx, agent.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach profile agent")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, user.ID)
}

func normalizeRole(role string) (string, error) {
	role = enums.NormalizeRoleName(role)
	if role == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "role is required")
	}
	if len(role) > 32 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "role name too long")
	}
	return role, nil
}

func (s *service) AddRole(ctx context.Context, actor access.Actor, userID int64, role string, scope Scope) (bool, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return false, err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	permission := access.RolePermission(access.ActionAddRole, role)
	if err := access.Check(actor, permission, access.UserPolicy{Target: user}); err != nil {
		return false, err
	}

	subsiteID := scope.resolve(actor)
	if roles.Is(user.Roles, role, subsiteID, actor.SubsiteID) {
		return false, nil
	}
	row := &models.Role{UserID: user.ID, Name: role, SubsiteID: roles.ScopeFor(role, subsiteID)}
	if err := s.roles.Create(ctx, row); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create role")
	}
	return true, nil
}

func (s *service) RemoveRole(ctx context.Context, actor access.Actor, userID int64, role string, scope Scope) (bool, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return false, err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	permission := access.RolePermission(access.ActionRemoveRole, role)
	if err := access.Check(actor, permission, access.UserPolicy{Target: user}); err != nil {
		return false, err
	}

	idx := roles.Find(user.Roles, role, roles.ScopeFor(role, scope.resolve(actor)))
	if idx < 0 {
		return false, nil
	}
	if err := s.roles.Delete(ctx, user.Roles[idx].ID); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete role")
	}
	return true, nil
}

func (s *service) Is(ctx context.Context, actor access.Actor, userID int64, role string, scope Scope) (bool, error) {
	user, err := s.Get(ctx, actor, userID)
	if err != nil {
		return false, err
	}
	return roles.Is(user.Roles, role, scope.resolve(actor), actor.SubsiteID), nil
}

// Can evaluates whether the user userID, acting in the caller's subsite,
// may perform action on the given entity.
func (s *service) Can(ctx context.Context, actor access.Actor, userID int64, action string, kind enums.EntityKind, entityID int64) (bool, error) {
	if strings.TrimSpace(action) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if err := access.Check(actor, access.ActionViewPrivate, access.UserPolicy{Target: user}); err != nil {
		return false, err
	}

	policy, err := s.policyFor(ctx, kind, entityID)
	if err != nil {
		return false, err
	}
	return access.Can(access.ForUser(user, actor.SubsiteID), action, policy), nil
}

func (s *service) policyFor(ctx context.Context, kind enums.EntityKind, id int64) (access.Policy, error) {
	if kind == enums.EntityKindUser {
		target, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return access.UserPolicy{Target: target}, nil
	}
	if !kind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown entity %q", kind)
	}
	owner, err := s.entities.FindOwner(ctx, kind, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", kind)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load entity owner")
	}
	return access.OwnedPolicy{Kind: kind, OwnerUserID: owner.UserID, Status: owner.Status}, nil
}

// authorizeStatus validates a requested status against allowed and checks
// modify on user when the status is not public.
func authorizeStatus(actor access.Actor, user *models.User, status *enums.Status, allowed []enums.Status) error {
	if status == nil {
		return nil
	}
	ok := false
	for _, candidate := range allowed {
		if candidate == *status {
			ok = true
			break
		}
	}
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "status %s is not supported here", *status)
	}
	if status.IsPublic() {
		return nil
	}
	return access.Check(actor, access.ActionModify, access.UserPolicy{Target: user})
}

func (s *service) Agents(ctx context.Context, actor access.Actor, userID int64, status *enums.Status) ([]entities.Record, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatus(actor, user, status, agentStatuses); err != nil {
		return nil, err
	}
	rows, err := s.entities.ListOwned(ctx, enums.EntityKindAgent, user.ID, entities.FilterFor(status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}
	return rows, nil
}

func (s *service) Entities(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind, status *enums.Status) ([]entities.Record, error) {
	if kind == enums.EntityKindAgent {
		return s.Agents(ctx, actor, userID, status)
	}
	if !kind.IsOwnedThroughAgent() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported entity kind %q", kind)
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatus(actor, user, status, entityStatuses); err != nil {
		return nil, err
	}
	rows, err := s.entities.ListOwned(ctx, kind, user.ID, entities.FilterFor(status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list "+kind.String())
	}
	return rows, nil
}

func (s *service) authorizeModify(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind) (*models.User, error) {
	if kind != enums.EntityKindAgent && !kind.IsOwnedThroughAgent() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported entity kind %q", kind)
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.ActionModify, access.UserPolicy{Target: user}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) HasControl(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind) ([]entities.Record, error) {
	user, err := s.authorizeModify(ctx, actor, userID, kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.entities.ListControlled(ctx, kind, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list controlled "+kind.String())
	}
	return rows, nil
}

func (s *service) AgentsWithControl(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind) ([]entities.Record, error) {
	user, err := s.authorizeModify(ctx, actor, userID, kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.entities.ListAgentsWithControl(ctx, kind, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents with control")
	}
	out := make([]entities.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.FromAgent(row))
	}
	return out, nil
}

func (s *service) Subsites(ctx context.Context, actor access.Actor, userID int64, status *enums.Status) ([]entities.Record, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatus(actor, user, status, entityStatuses); err != nil {
		return nil, err
	}
	if !roles.Is(user.Roles, enums.RoleSaasAdmin, nil, nil) {
		return []entities.Record{}, nil
	}
	rows, err := s.entities.ListSubsites(ctx, entities.FilterFor(status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subsites")
	}
	out := make([]entities.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.FromSubsite(row))
	}
	return out, nil
}

func validateMetaKey(key string) error {
	if key == "" || len(key) > maxMetaKeyLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid metadata key")
	}
	if strings.HasPrefix(key, ProtectedMetaPrefix) {
		return pkgerrors.PermissionDenied("meta:" + key)
	}
	return nil
}

func (s *service) GetMeta(ctx context.Context, actor access.Actor, userID int64, key string) (string, error) {
	key = strings.TrimSpace(key)
	if err := validateMetaKey(key); err != nil {
		return "", err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := access.Check(actor, access.ActionViewPrivate, access.UserPolicy{Target: user}); err != nil {
		return "", err
	}
	value, ok, err := s.users.GetMeta(ctx, user.ID, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read metadata")
	}
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "metadata not found")
	}
	return value, nil
}

func (s *service) SetMeta(ctx context.Context, actor access.Actor, userID int64, key, value string) error {
	key = strings.TrimSpace(key)
	if err := validateMetaKey(key); err != nil {
		return err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := access.Check(actor, access.ActionModify, access.UserPolicy{Target: user}); err != nil {
		return err
	}
	if err := s.users.SetMeta(ctx, user.ID, key, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write metadata")
	}
	return nil
}
