package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("event_not_found")
	ErrInvalidSlug  = errors.New("invalid_slug")
	ErrInvalidRange = errors.New("invalid_capacity_range")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Event, error)
	// LockByID reads the event row under SELECT ... FOR UPDATE where the
	// dialect supports row locks.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	ListStartingBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]*Event, error)
	ListPublished(ctx context.Context, db *gorm.DB, from time.Time) ([]*Event, error)
}
