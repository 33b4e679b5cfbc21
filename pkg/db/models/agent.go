package models

import (
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// Agent is a person or collective profile; every user owns at least one.
type Agent struct {
	ID               int64        `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           int64        `gorm:"column:user_id;not null;index"`
	ParentID         *int64       `gorm:"column:parent_id"`
	Type             int16        `gorm:"column:type;type:smallint;not null"`
	Name             string       `gorm:"column:name;not null"`
	ShortDescription *string      `gorm:"column:short_description;type:text"`
	Status           enums.Status `gorm:"column:status;type:smallint;not null"`
	SubsiteID        *int64       `gorm:"column:subsite_id"`
	CreateTimestamp  time.Time    `gorm:"column:create_timestamp;not null"`
	UpdateTimestamp  *time.Time   `gorm:"column:update_timestamp"`
	SentNotification *int64       `gorm:"column:sent_notification"`

	Metadata      []EntityMeta   `gorm:"polymorphic:Object;polymorphicValue:agent"`
	Terms         []TermRelation `gorm:"polymorphic:Object;polymorphicValue:agent"`
	SealRelations []SealRelation `gorm:"polymorphic:Object;polymorphicValue:agent"`
}

func (Agent) TableName() string { return "agent" }

// LastUpdate returns the update timestamp, or the creation time when the
// agent was never updated.
func (a Agent) LastUpdate() time.Time {
	if a.UpdateTimestamp != nil {
		return *a.UpdateTimestamp
	}
	return a.CreateTimestamp
}

// AgentRelation links an agent to another entity, optionally granting it
// control over that entity.
type AgentRelation struct {
	ID              int64        `gorm:"column:id;primaryKey;autoIncrement"`
	AgentID         int64        `gorm:"column:agent_id;not null;index"`
	ObjectType      string       `gorm:"column:object_type;size:32;not null"`
	ObjectID        int64        `gorm:"column:object_id;not null"`
	Type            string       `gorm:"column:type;size:64"`
	HasControl      bool         `gorm:"column:has_control;not null;default:false"`
	Status          enums.Status `gorm:"column:status;type:smallint;not null"`
	CreateTimestamp time.Time    `gorm:"column:create_timestamp;autoCreateTime"`
}

func (AgentRelation) TableName() string { return "agent_relation" }
