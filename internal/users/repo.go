package users

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const metaObjectType = "user"

// ownedTables are removed together with the user's agents.
var ownedTables = []string{"space", "event", "project", "seal"}

// Repository exposes user persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByAuth(ctx context.Context, provider int16, uid string) (*models.User, error)
	FindByEmail(ctx context.Context, provider int16, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateProfile(ctx context.Context, id, profileID int64) error
	GetMeta(ctx context.Context, userID int64, key string) (string, bool, error)
	SetMeta(ctx context.Context, userID int64, key, value string) error
	Delete(ctx context.Context, id int64) error
	ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

// FindByID loads a user with roles and profile.
func (r *repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Profile").
		Preload("Profile.Metadata").
		Preload("Profile.Terms.Term").
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByAuth(ctx context.Context, provider int16, uid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("auth_provider = ? AND auth_uid = ?", provider, uid).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches the email case-insensitively within one provider.
func (r *repository) FindByEmail(ctx context.Context, provider int16, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("auth_provider = ? AND lower(email) = ?", provider, strings.ToLower(strings.TrimSpace(email))).
		Order("id ASC").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_timestamp", at).Error
}

func (r *repository) UpdateProfile(ctx context.Context, id, profileID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("profile_id", profileID).Error
}

func (r *repository) GetMeta(ctx context.Context, userID int64, key string) (string, bool, error) {
	var rows []models.EntityMeta
	err := r.db.WithContext(ctx).
		Where("object_type = ? AND object_id = ? AND key = ?", metaObjectType, userID, key).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0].Value, true, nil
}

// SetMeta upserts a metadata value on the (object, key) unique index.
func (r *repository) SetMeta(ctx context.Context, userID int64, key, value string) error {
	row := models.EntityMeta{ObjectType: metaObjectType, ObjectID: userID, Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "object_type"}, {Name: "object_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&row).Error
}

// objectTables hold rows that point at an entity through object_type and
// object_id.
var objectTables = []string{"entity_meta", "term_relation", "seal_relation", "agent_relation"}

// Delete removes the user with its roles, metadata, agents and the entities
// those agents own, along with every relation row pointing at them. Run it
// inside a transaction.
func (r *repository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	agentIDs := db.Model(&models.Agent{}).Select("id").Where("user_id = ?", id)
	sealIDs := db.Model(&models.Seal{}).Select("id").Where("agent_id IN (?)", agentIDs)

	if err := db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("profile_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("seal_id IN (?)", sealIDs).Delete(&models.SealRelation{}).Error; err != nil {
		return err
	}
	for _, table := range ownedTables {
		owned := db.Table(table).Select("id").Where("agent_id IN (?)", agentIDs)
		if err := deleteObjectRows(db, table, owned); err != nil {
			return err
		}
		if err := db.Exec("DELETE FROM "+table+" WHERE agent_id IN (?)", agentIDs).Error; err != nil {
			return err
		}
	}
	if err := deleteObjectRows(db, string(enums.EntityKindAgent), agentIDs); err != nil {
		return err
	}
	if err := db.Where("agent_id IN (?)", agentIDs).Delete(&models.AgentRelation{}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.SealRelation{}).Where("agent_id IN (?)", agentIDs).UpdateColumn("agent_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&models.Agent{}).Error; err != nil {
		return err
	}
	if err := db.Where("usr_id = ?", id).Delete(&models.Role{}).Error; err != nil {
		return err
	}
	if err := db.Where("object_type = ? AND object_id = ?", metaObjectType, id).Delete(&models.EntityMeta{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.User{ID: id}).Error
}

func deleteObjectRows(db *gorm.DB, objectType string, ids *gorm.DB) error {
	for _, table := range objectTables {
		if err := db.Exec("DELETE FROM "+table+" WHERE object_type = ? AND object_id IN (?)", objectType, ids).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListActiveIDs pages through enabled users by id.
func (r *repository) ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("status = ? AND id > ?", enums.StatusEnabled, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
