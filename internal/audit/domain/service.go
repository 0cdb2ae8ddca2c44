package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type RecordRequest struct {
	EntityType string
	EntityID   string
	Action     string
	Changes    map[string]any
	ActorType  string
	ActorID    string
}

type ListAuditLogRequest struct {
	EntityType string
	EntityID   string
	Action     string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

type Service interface {
	// Record appends an entry using db, which may be an open transaction.
	Record(ctx context.Context, db *gorm.DB, req RecordRequest) (AuditLog, error)
	List(ctx context.Context, req ListAuditLogRequest) ([]AuditLog, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidEntity    = errors.New("invalid_entity")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
