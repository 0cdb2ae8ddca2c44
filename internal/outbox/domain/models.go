package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// MaxAttempts bounds relay attempts per effect row.
const MaxAttempts = 5

// Effect is a notify effect recorded in the transition transaction and
// relayed to the dispatcher after commit.
type Effect struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	BookingID     snowflake.ID      `gorm:"not null" json:"booking_id"`
	Effect        string            `gorm:"not null" json:"effect"`
	TemplateID    string            `gorm:"not null" json:"template_id"`
	RecipientType string            `gorm:"not null" json:"recipient_type"`
	RecipientID   string            `gorm:"not null" json:"recipient_id"`
	Status        Status            `gorm:"not null" json:"status"`
	Attempts      int               `gorm:"not null" json:"attempts"`
	LastError     *string           `json:"last_error,omitempty"`
	Payload       datatypes.JSONMap `gorm:"not null" json:"payload"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
}

func (Effect) TableName() string { return "booking_effects" }

// Payload keys.
const (
	PayloadAction    = "action"
	PayloadActor     = "actor"
	PayloadActorID   = "actor_id"
	PayloadReason    = "reason"
	PayloadPaymentID = "payment_id"
	PayloadFrom      = "from"
	PayloadTo        = "to"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, effect *Effect) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Effect, error)
	MarkDone(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	// MarkAttemptFailed bumps attempts and moves the row to FAILED once
	// MaxAttempts is reached.
	MarkAttemptFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errMsg string, now time.Time) error
	ListPending(ctx context.Context, db *gorm.DB, createdBefore time.Time, limit int) ([]snowflake.ID, error)
}
