package models

import (
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// Notification is an in-app message addressed to a user.
type Notification struct {
	ID              int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          int64                    `gorm:"column:user_id;not null;index"`
	Message         string                   `gorm:"column:message;type:text;not null"`
	Status          enums.NotificationStatus `gorm:"column:status;type:smallint;not null;default:1"`
	CreateTimestamp time.Time                `gorm:"column:create_timestamp;not null"`
	ActionTimestamp *time.Time               `gorm:"column:action_timestamp"`
}

func (Notification) TableName() string { return "notification" }
