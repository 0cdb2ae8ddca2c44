package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/venuebook/internal/audit/domain"
	"github.com/smallbiznis/venuebook/pkg/db/pagination"
)

type CreateBookingRequest struct {
	EventID        snowflake.ID
	Phone          string
	FullName       string
	Email          string
	TelegramChatID string
	GuestsCount    int
	PromoCode      string
	Notes          string
}

type ListBookingRequest struct {
	pagination.Pagination
	Status   BookingStatus
	EventID  snowflake.ID
	ClientID snowflake.ID
}

type ListBookingResponse struct {
	pagination.PageInfo
	Bookings []Booking `json:"bookings"`
}

type Service interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	Get(ctx context.Context, id snowflake.ID) (*Booking, error)
	GetByNumber(ctx context.Context, number string) (*Booking, error)
	List(ctx context.Context, req ListBookingRequest) (ListBookingResponse, error)
	Cancel(ctx context.Context, id snowflake.ID, tc TransitionContext) (*Booking, error)
	AuditTrail(ctx context.Context, id snowflake.ID) ([]auditdomain.AuditLog, error)
}

var (
	ErrInvalidGuests   = errors.New("invalid_guests_count")
	ErrEventNotFound   = errors.New("event_not_found")
	ErrEventNotOpen    = errors.New("event_not_open")
	ErrInvalidPromo    = errors.New("invalid_promo_code")
	ErrInvalidPhone    = errors.New("invalid_phone")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrBookingNotFound = errors.New("booking_not_found")
)
