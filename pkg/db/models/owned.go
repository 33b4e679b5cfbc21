package models

import (
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

// OwnedEntity holds the columns shared by entities owned through an agent.
type OwnedEntity struct {
	ID               int64        `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID          int64        `gorm:"column:agent_id;not null;index"`
	Name             string       `gorm:"column:name;not null"`
	ShortDescription *string      `gorm:"column:short_description;type:text"`
	Status           enums.Status `gorm:"column:status;type:smallint;not null"`
	SubsiteID        *int64       `gorm:"column:subsite_id"`
	CreateTimestamp  time.Time    `gorm:"column:create_timestamp;not null"`
	UpdateTimestamp  *time.Time   `gorm:"column:update_timestamp"`
}

// LastUpdate returns the update timestamp, or the creation time when the
// entity was never updated.
func (e OwnedEntity) LastUpdate() time.Time {
	if e.UpdateTimestamp != nil {
		return *e.UpdateTimestamp
	}
	return e.CreateTimestamp
}

type Space struct {
	OwnedEntity
	SentNotification *int64 `gorm:"column:sent_notification"`

	Owner         *Agent         `gorm:"foreignKey:OwnerID"`
	Metadata      []EntityMeta   `gorm:"polymorphic:Object;polymorphicValue:space"`
	Terms         []TermRelation `gorm:"polymorphic:Object;polymorphicValue:space"`
	SealRelations []SealRelation `gorm:"polymorphic:Object;polymorphicValue:space"`
}

func (Space) TableName() string { return "space" }

type Event struct {
	OwnedEntity

	Owner    *Agent         `gorm:"foreignKey:OwnerID"`
	Metadata []EntityMeta   `gorm:"polymorphic:Object;polymorphicValue:event"`
	Terms    []TermRelation `gorm:"polymorphic:Object;polymorphicValue:event"`
}

func (Event) TableName() string { return "event" }

type Project struct {
	OwnedEntity

	Owner    *Agent         `gorm:"foreignKey:OwnerID"`
	Metadata []EntityMeta   `gorm:"polymorphic:Object;polymorphicValue:project"`
	Terms    []TermRelation `gorm:"polymorphic:Object;polymorphicValue:project"`
}

func (Project) TableName() string { return "project" }

// Seal is a certification granted by its owner agent to other entities.
type Seal struct {
	OwnedEntity
	// ValidPeriod is the validity in months; zero means it never expires.
	ValidPeriod int16 `gorm:"column:valid_period;type:smallint;not null;default:0"`

	Owner    *Agent       `gorm:"foreignKey:OwnerID"`
	Metadata []EntityMeta `gorm:"polymorphic:Object;polymorphicValue:seal"`
}

func (Seal) TableName() string { return "seal" }

// SealRelation attaches a seal to an agent or space until ValidateDate.
type SealRelation struct {
	ID              int64        `gorm:"column:id;primaryKey;autoIncrement"`
	SealID          int64        `gorm:"column:seal_id;not null;index"`
	ObjectType      string       `gorm:"column:object_type;size:32;not null"`
	ObjectID        int64        `gorm:"column:object_id;not null"`
	AgentID         *int64       `gorm:"column:agent_id"`
	ValidateDate    *time.Time   `gorm:"column:validate_date"`
	Status          enums.Status `gorm:"column:status;type:smallint;not null"`
	CreateTimestamp time.Time    `gorm:"column:create_timestamp;autoCreateTime"`

	Seal *Seal `gorm:"foreignKey:SealID"`
}

func (SealRelation) TableName() string { return "seal_relation" }

type Subsite struct {
	ID              int64        `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID         *int64       `gorm:"column:agent_id"`
	Name            string       `gorm:"column:name;not null"`
	URL             string       `gorm:"column:url;not null;uniqueIndex"`
	Status          enums.Status `gorm:"column:status;type:smallint;not null"`
	CreateTimestamp time.Time    `gorm:"column:create_timestamp;autoCreateTime"`
}

func (Subsite) TableName() string { return "subsite" }

type Term struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Taxonomy string `gorm:"column:taxonomy;size:64;not null"`
	Term     string `gorm:"column:term;not null"`
}

func (Term) TableName() string { return "term" }

type TermRelation struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TermID     int64  `gorm:"column:term_id;not null"`
	ObjectType string `gorm:"column:object_type;size:32;not null"`
	ObjectID   int64  `gorm:"column:object_id;not null"`

	Term *Term `gorm:"foreignKey:TermID"`
}

func (TermRelation) TableName() string { return "term_relation" }
