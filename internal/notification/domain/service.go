package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
)

// Transport delivers a rendered payload to one destination on its channel.
type Transport interface {
	Channel() Channel
	Send(ctx context.Context, destination string, payload Payload) error
}

// TemplateContext is the data a template renders from. Booking is expected
// to carry its event and client.
type TemplateContext struct {
	Booking *bookingdomain.Booking
	Event   *eventdomain.Event
	Payment *paymentdomain.Payment
	Custom  map[string]any
}

// BookingEvent returns the explicit event or the one attached to Booking.
func (c TemplateContext) BookingEvent() *eventdomain.Event {
	if c.Event != nil {
		return c.Event
	}
	if c.Booking != nil {
		return c.Booking.Event
	}
	return nil
}

type DispatchOptions struct {
	ScheduledAt *time.Time
	BookingID   *snowflake.ID
}

type DispatchOption func(*DispatchOptions)

// WithScheduledAt defers delivery to the due-notification sweep.
func WithScheduledAt(at time.Time) DispatchOption {
	return func(o *DispatchOptions) {
		v := at.UTC()
		o.ScheduledAt = &v
	}
}

// WithBookingID links the rows to a booking when the context carries none.
func WithBookingID(id snowflake.ID) DispatchOption {
	return func(o *DispatchOptions) {
		o.BookingID = &id
	}
}

type Dispatcher interface {
	// Dispatch renders the template and queues one row per channel with a
	// registered transport. It never waits for delivery.
	Dispatch(ctx context.Context, templateID string, recipientType RecipientType, recipientID string, tctx TemplateContext, opts ...DispatchOption) ([]Notification, error)
	// ProcessNotification makes one delivery attempt.
	ProcessNotification(ctx context.Context, id snowflake.ID) error
	// ProcessDue attempts up to limit due rows, oldest first.
	ProcessDue(ctx context.Context, limit int) (int, error)
}

var (
	ErrNoDestination   = errors.New("no_destination")
	ErrNoTransport     = errors.New("no_transport")
	ErrUnknownTemplate = errors.New("unknown_template")
)
