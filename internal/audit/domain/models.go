package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem  ActorType = "system"
	ActorTypeClient  ActorType = "client"
	ActorTypeManager ActorType = "manager"
)

const EntityTypeBooking = "booking"

// AuditLog is an append-only record of one state change.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	EntityType string            `gorm:"not null" json:"entity_type"`
	EntityID   string            `gorm:"not null" json:"entity_id"`
	Action     string            `gorm:"not null" json:"action"`
	Changes    datatypes.JSONMap `gorm:"not null" json:"changes"`
	ActorType  string            `gorm:"not null" json:"actor_type"`
	ActorID    string            `gorm:"not null" json:"actor_id"`
	RequestID  *string           `json:"request_id,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
