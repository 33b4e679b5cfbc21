package roles

import (
	"context"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists role rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64) ([]models.Role, error)
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

func (r *repository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Role{}, id).Error
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]models.Role, error) {
	var rows []models.Role
	err := r.db.WithContext(ctx).
		Where("usr_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
