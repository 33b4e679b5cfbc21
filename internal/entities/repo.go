package entities

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and updates the cultural entities owned by users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListAgents(ctx context.Context, userID int64, filter StatusFilter) ([]models.Agent, error)
	ListOwned(ctx context.Context, kind enums.EntityKind, userID int64, filter StatusFilter) ([]Record, error)
	ListControlled(ctx context.Context, kind enums.EntityKind, userID int64) ([]Record, error)
	ListAgentsWithControl(ctx context.Context, kind enums.EntityKind, userID int64) ([]models.Agent, error)
	ListSubsites(ctx context.Context, filter StatusFilter) ([]models.Subsite, error)
	ListAgentsWithSeals(ctx context.Context, userID int64) ([]models.Agent, error)
	ListSpacesWithSeals(ctx context.Context, userID int64) ([]models.Space, error)
	FindAgent(ctx context.Context, id int64) (*models.Agent, error)
	FindOwner(ctx context.Context, kind enums.EntityKind, id int64) (Ownership, error)
	CreateAgent(ctx context.Context, agent *models.Agent) error
	SaveAgent(ctx context.Context, agent *models.Agent, now time.Time) error
	ClearParent(ctx context.Context, agentID int64) error
	MarkSentNotification(ctx context.Context, kind enums.EntityKind, id, notificationID int64) error
}

// Ownership identifies who controls an entity.
type Ownership struct {
	UserID int64
	Status enums.Status
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// tableFor returns the table backing kind.
func tableFor(kind enums.EntityKind) (string, error) {
	switch kind {
	case enums.EntityKindAgent, enums.EntityKindSpace, enums.EntityKindEvent,
		enums.EntityKindProject, enums.EntityKindSeal, enums.EntityKindSubsite:
		return string(kind), nil
	}
	return "", fmt.Errorf("unsupported entity kind %q", kind)
}

func (r *repository) ListAgents(ctx context.Context, userID int64, filter StatusFilter) ([]models.Agent, error) {
	cond, status := filter.clause("agent.status")
	var rows []models.Agent
	err := r.db.WithContext(ctx).
		Preload("Metadata").
		Preload("Terms.Term").
		Where("agent.user_id = ?", userID).
		Where(cond, status).
		Order("agent.name ASC").
		Find(&rows).Error
	return rows, err
}

// listOwned loads entities of table owned through an agent of userID, ordered
// by name then creation time.
func listOwned[T any](ctx context.Context, db *gorm.DB, kind enums.EntityKind, userID int64, filter StatusFilter) ([]T, error) {
	table := string(kind)
	cond, status := filter.clause(table + ".status")
	query := db.WithContext(ctx).
		Model(new(T)).
		Select(table+".*").
		Joins("JOIN agent owner_agent ON owner_agent.id = "+table+".agent_id").
		Where("owner_agent.user_id = ?", userID).
		Where(cond, status).
		Order(table + ".name ASC").
		Order(table + ".create_timestamp ASC").
		Preload("Metadata")
	if kind.UsesTaxonomies() {
		query = query.Preload("Terms.Term")
	}
	var rows []T
	err := query.Find(&rows).Error
	return rows, err
}

func (r *repository) ListOwned(ctx context.Context, kind enums.EntityKind, userID int64, filter StatusFilter) ([]Record, error) {
	switch kind {
	case enums.EntityKindAgent:
		rows, err := r.ListAgents(ctx, userID, filter)
		return mapRecords(rows, FromAgent), err
	case enums.EntityKindSpace:
		rows, err := listOwned[models.Space](ctx, r.db, kind, userID, filter)
		return mapRecords(rows, FromSpace), err
	case enums.EntityKindEvent:
		rows, err := listOwned[models.Event](ctx, r.db, kind, userID, filter)
		return mapRecords(rows, FromEvent), err
	case enums.EntityKindProject:
		rows, err := listOwned[models.Project](ctx, r.db, kind, userID, filter)
		return mapRecords(rows, FromProject), err
	case enums.EntityKindSeal:
		rows, err := listOwned[models.Seal](ctx, r.db, kind, userID, filter)
		return mapRecords(rows, FromSeal), err
	}
	return nil, fmt.Errorf("unsupported owned kind %q", kind)
}

const controlledByUser = `EXISTS (
	SELECT 1 FROM agent_relation ar
	JOIN agent ra ON ra.id = ar.agent_id
	WHERE ar.object_type = ? AND ar.object_id = %s.id
	AND ar.has_control = ? AND ar.status = ? AND ra.user_id = ?)`

// controlled loads entities of kind with a public status over which an
// agent of userID holds an enabled control relation.
func controlled[T any](ctx context.Context, db *gorm.DB, kind enums.EntityKind, userID int64) ([]T, error) {
	table := string(kind)
	var rows []T
	err := db.WithContext(ctx).
		Model(new(T)).
		Where(table+".status > ?", enums.StatusDraft).
		Where(fmt.Sprintf(controlledByUser, table), string(kind), true, enums.StatusEnabled, userID).
		Order(table + ".name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListControlled(ctx context.Context, kind enums.EntityKind, userID int64) ([]Record, error) {
	switch kind {
	case enums.EntityKindAgent:
		rows, err := controlled[models.Agent](ctx, r.db, kind, userID)
		return mapRecords(rows, FromAgent), err
	case enums.EntityKindSpace:
		rows, err := controlled[models.Space](ctx, r.db, kind, userID)
		return mapRecords(rows, FromSpace), err
	case enums.EntityKindEvent:
		rows, err := controlled[models.Event](ctx, r.db, kind, userID)
		return mapRecords(rows, FromEvent), err
	case enums.EntityKindProject:
		rows, err := controlled[models.Project](ctx, r.db, kind, userID)
		return mapRecords(rows, FromProject), err
	case enums.EntityKindSeal:
		rows, err := controlled[models.Seal](ctx, r.db, kind, userID)
		return mapRecords(rows, FromSeal), err
	}
	return nil, fmt.Errorf("unsupported controllable kind %q", kind)
}

// ownedIDs returns a subquery selecting the ids of kind owned by a user,
// bound to one user id parameter.
func ownedIDs(kind enums.EntityKind) (string, error) {
	if kind == enums.EntityKindAgent {
		return "SELECT oa.id FROM agent oa WHERE oa.user_id = ?", nil
	}
	if !kind.IsOwnedThroughAgent() {
		return "", fmt.Errorf("unsupported owned kind %q", kind)
	}
	return fmt.Sprintf("SELECT e.id FROM %s e JOIN agent oa ON oa.id = e.agent_id WHERE oa.user_id = ?", kind), nil
}

func (r *repository) ListAgentsWithControl(ctx context.Context, kind enums.EntityKind, userID int64) ([]models.Agent, error) {
	owned, err := ownedIDs(kind)
	if err != nil {
		return nil, err
	}
	var rows []models.Agent
	err = r.db.WithContext(ctx).
		Where("agent.status > ?", enums.StatusDraft).
		Where(`EXISTS (
			SELECT 1 FROM agent_relation ar
			WHERE ar.agent_id = agent.id AND ar.has_control = ? AND ar.status = ?
			AND ar.object_type = ? AND ar.object_id IN (`+owned+`))`,
			true, enums.StatusEnabled, string(kind), userID).
		Order("agent.name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListSubsites(ctx context.Context, filter StatusFilter) ([]models.Subsite, error) {
	cond, status := filter.clause("status")
	var rows []models.Subsite
	err := r.db.WithContext(ctx).Where(cond, status).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListAgentsWithSeals(ctx context.Context, userID int64) ([]models.Agent, error) {
	var rows []models.Agent
	err := r.db.WithContext(ctx).
		Preload("SealRelations", "validate_date IS NOT NULL").
		Preload("SealRelations.Seal").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListSpacesWithSeals(ctx context.Context, userID int64) ([]models.Space, error) {
	var rows []models.Space
	err := r.db.WithContext(ctx).
		Select("space.*").
		Joins("JOIN agent owner_agent ON owner_agent.id = space.agent_id").
		Preload("SealRelations", "validate_date IS NOT NULL").
		Preload("SealRelations.Seal").
		Where("owner_agent.user_id = ?", userID).
		Where("space.status > ?", enums.StatusDraft).
		Order("space.id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAgent(ctx context.Context, id int64) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).
		Preload("Terms.Term").
		First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) FindOwner(ctx context.Context, kind enums.EntityKind, id int64) (Ownership, error) {
	var query string
	switch {
	case kind == enums.EntityKindAgent:
		query = "SELECT user_id, status FROM agent WHERE id = ?"
	case kind == enums.EntityKindSubsite:
		query = "SELECT COALESCE(a.user_id, 0) AS user_id, s.status FROM subsite s LEFT JOIN agent a ON a.id = s.agent_id WHERE s.id = ?"
	case kind.IsOwnedThroughAgent():
		query = fmt.Sprintf("SELECT a.user_id, e.status FROM %s e JOIN agent a ON a.id = e.agent_id WHERE e.id = ?", kind)
	default:
		return Ownership{}, fmt.Errorf("unsupported entity kind %q", kind)
	}

	var row Ownership
	result := r.db.WithContext(ctx).Raw(query, id).Scan(&row)
	if result.Error != nil {
		return Ownership{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Ownership{}, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (r *repository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(agent).Error
}

// SaveAgent persists agent edits. Any pending stale-entity notification is
// cleared so a future one can be sent.
func (r *repository) SaveAgent(ctx context.Context, agent *models.Agent, now time.Time) error {
	agent.UpdateTimestamp = &now
	agent.SentNotification = nil
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(agent).Error
}

func (r *repository) ClearParent(ctx context.Context, agentID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{ID: agentID}).
		UpdateColumn("parent_id", nil).Error
}

func (r *repository) MarkSentNotification(ctx context.Context, kind enums.EntityKind, id, notificationID int64) error {
	if kind != enums.EntityKindAgent && kind != enums.EntityKindSpace {
		return fmt.Errorf("kind %q does not track sent notifications", kind)
	}
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Table(table).
		Where("id = ?", id).
		UpdateColumn("sent_notification", notificationID).Error
}
