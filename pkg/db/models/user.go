package models

import (
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// User is the account identity linked to an authentication provider.
type User struct {
	ID                 int64        `gorm:"column:id;primaryKey;autoIncrement"`
	AuthProvider       int16        `gorm:"column:auth_provider;type:smallint;not null;uniqueIndex:usr_provider_uid_idx"`
	AuthUID            string       `gorm:"column:auth_uid;size:512;not null;uniqueIndex:usr_provider_uid_idx"`
	Email              string       `gorm:"column:email;size:255;not null"`
	LastLoginTimestamp *time.Time   `gorm:"column:last_login_timestamp"`
	CreateTimestamp    time.Time    `gorm:"column:create_timestamp;not null"`
	Status             enums.Status `gorm:"column:status;type:smallint;not null"`
	ProfileID          *int64       `gorm:"column:profile_id"`

	Profile  *Agent       `gorm:"foreignKey:ProfileID"`
	Roles    []Role       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Agents   []Agent      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Metadata []EntityMeta `gorm:"polymorphic:Object;polymorphicValue:user"`
}

func (User) TableName() string { return "usr" }

// Role grants a named capability to a user, optionally scoped to a subsite.
type Role struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          int64     `gorm:"column:usr_id;not null;index"`
	Name            string    `gorm:"column:name;size:32;not null"`
	SubsiteID       *int64    `gorm:"column:subsite_id"`
	CreateTimestamp time.Time `gorm:"column:create_timestamp;autoCreateTime"`
}

func (Role) TableName() string { return "role" }

// EntityMeta stores free-form key/value metadata for any entity.
type EntityMeta struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ObjectType string `gorm:"column:object_type;size:32;not null;uniqueIndex:entity_meta_object_key"`
	ObjectID   int64  `gorm:"column:object_id;not null;uniqueIndex:entity_meta_object_key"`
	Key        string `gorm:"column:key;size:128;not null;uniqueIndex:entity_meta_object_key"`
	Value      string `gorm:"column:value;type:text"`
}

func (EntityMeta) TableName() string { return "entity_meta" }
