// Package capacity answers whether an event can seat more guests.
package capacity

import (
	"context"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	"gorm.io/gorm"
)

// Fits reports whether requested guests fit next to current ones.
func Fits(current, requested, max int) bool {
	if requested <= 0 {
		return false
	}
	return current+requested <= max
}

// Remaining is the number of free seats, never negative.
func Remaining(current, max int) int {
	if current >= max {
		return 0
	}
	return max - current
}

type Counter struct {
	repo bookingdomain.Repository
}

func NewCounter(repo bookingdomain.Repository) *Counter {
	return &Counter{repo: repo}
}

// Current sums guests over active bookings of the event, excluding one booking.
func (c *Counter) Current(ctx context.Context, db *gorm.DB, eventID, excludeBookingID snowflake.ID) (int, error) {
	return c.repo.SumActiveGuests(ctx, db, eventID, excludeBookingID)
}
