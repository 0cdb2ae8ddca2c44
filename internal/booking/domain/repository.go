package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// FieldUpdate is the status-conditioned write the engine performs.
type FieldUpdate struct {
	ID         snowflake.ID
	FromStatus BookingStatus
	ToStatus   BookingStatus
	Booking    *Booking
	UpdatedAt  time.Time
}

type ListFilter struct {
	Status   BookingStatus
	EventID  snowflake.ID
	ClientID snowflake.ID
	Cursor   *ListCursor
	Limit    int
}

type ListCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Booking, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Booking, error)

	// ApplyTransition writes the mutable lifecycle columns only while the
	// row is still in FromStatus. It reports the affected row count.
	ApplyTransition(ctx context.Context, db *gorm.DB, update FieldUpdate) (int64, error)

	// SumActiveGuests sums guests_count over active bookings of an event,
	// excluding one booking id.
	SumActiveGuests(ctx context.Context, db *gorm.DB, eventID, excludeID snowflake.ID) (int, error)

	// NextBookingNumber reserves the next per-year sequence value.
	NextBookingNumber(ctx context.Context, db *gorm.DB, year int, now time.Time) (int64, error)

	ListExpiredHolds(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
	ListFinishedEventBookings(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
	ListUpcoming(ctx context.Context, db *gorm.DB, from, to time.Time) ([]*Booking, error)
}
