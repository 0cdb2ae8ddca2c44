package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]Payment, error)
	FindLatestPending(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Payment, error)
	// MarkResult moves a PENDING payment to SUCCESS or FAILED. It reports
	// false when the payment was no longer pending.
	MarkResult(ctx context.Context, db *gorm.DB, id snowflake.ID, status PaymentStatus, transactionID string, data datatypes.JSONMap, now time.Time) (bool, error)
	SumSuccessful(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error)
}
