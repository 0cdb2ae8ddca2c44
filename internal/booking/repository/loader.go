package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"gorm.io/gorm"
)

// Loader reads a booking together with its event, client and payments.
type Loader struct {
	bookings domain.Repository
	events   eventdomain.Repository
	clients  clientdomain.Repository
	payments paymentdomain.Repository
}

func NewLoader(
	bookings domain.Repository,
	events eventdomain.Repository,
	clients clientdomain.Repository,
	payments paymentdomain.Repository,
) *Loader {
	return &Loader{
		bookings: bookings,
		events:   events,
		clients:  clients,
		payments: payments,
	}
}

// Load returns nil, nil when the booking does not exist.
func (l *Loader) Load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	booking, err := l.bookings.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, nil
	}
	if err := l.Attach(ctx, db, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Attach fills the relations of an already loaded booking.
func (l *Loader) Attach(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	event, err := l.events.FindByID(ctx, db, booking.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	client, err := l.clients.FindByID(ctx, db, booking.ClientID)
	if err != nil {
		return fmt.Errorf("load client: %w", err)
	}
	payments, err := l.payments.ListByBooking(ctx, db, booking.ID)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	booking.Event = event
	booking.Client = client
	booking.Payments = payments
	return nil
}
