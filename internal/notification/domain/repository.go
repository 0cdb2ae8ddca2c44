package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Notification, error)

	// The Mark* writes only apply while the row is QUEUED or RETRY and
	// report whether they did.
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	MarkRetry(ctx context.Context, db *gorm.DB, id snowflake.ID, retryCount int, scheduledAt time.Time, errMsg string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, retryCount int, errMsg string, now time.Time) (bool, error)

	ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
	ExistsForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, templateID string) (bool, error)
}
