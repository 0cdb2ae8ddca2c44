package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
)

type BookingStatus string

const (
	StatusDraft          BookingStatus = "DRAFT"
	StatusHold           BookingStatus = "HOLD"
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed      BookingStatus = "CONFIRMED"
	StatusPaid           BookingStatus = "PAID"
	StatusCompleted      BookingStatus = "COMPLETED"
	StatusNoShow         BookingStatus = "NO_SHOW"
	StatusCancelled      BookingStatus = "CANCELLED"
	StatusRefunded       BookingStatus = "REFUNDED"
)

// ActiveStatuses are the statuses whose guests count against event capacity.
var ActiveStatuses = []BookingStatus{
	StatusHold,
	StatusPendingPayment,
	StatusConfirmed,
	StatusPaid,
}

func (s BookingStatus) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Booking is a client's reservation of guest seats at an event. Amounts are
// in minor currency units. Status is written only by the lifecycle engine.
type Booking struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	BookingNumber      *string       `json:"booking_number,omitempty"`
	EventID            snowflake.ID  `gorm:"not null" json:"event_id"`
	ClientID           snowflake.ID  `gorm:"not null" json:"client_id"`
	GuestsCount        int           `gorm:"not null" json:"guests_count"`
	TotalPrice         int64         `gorm:"not null" json:"total_price"`
	DepositAmount      int64         `gorm:"not null" json:"deposit_amount"`
	Status             BookingStatus `gorm:"not null" json:"status"`
	HoldExpiresAt      *time.Time    `json:"hold_expires_at,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	PaidAt             *time.Time    `json:"paid_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	RefundAmount       *int64        `json:"refund_amount,omitempty"`
	RefundReason       *string       `json:"refund_reason,omitempty"`
	PromoCode          *string       `json:"promo_code,omitempty"`
	DiscountPercent    int           `gorm:"not null" json:"discount_percent"`
	Notes              *string       `json:"notes,omitempty"`
	CreatedAt          time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null" json:"updated_at"`

	Event    *eventdomain.Event      `gorm:"-" json:"event,omitempty"`
	Client   *clientdomain.Client    `gorm:"-" json:"client,omitempty"`
	Payments []paymentdomain.Payment `gorm:"-" json:"payments,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// Number returns the booking number or an empty string before submit.
func (b Booking) Number() string {
	if b.BookingNumber == nil {
		return ""
	}
	return *b.BookingNumber
}

// TotalPaid sums successful non-refund payments loaded on the booking.
func (b Booking) TotalPaid() int64 {
	return paymentdomain.TotalPaid(b.Payments)
}

// BalanceDue is what remains to reach the total price.
func (b Booking) BalanceDue() int64 {
	due := b.TotalPrice - b.TotalPaid()
	if due < 0 {
		return 0
	}
	return due
}

// ActorType identifies who initiated a transition.
type ActorType string

const (
	ActorClient  ActorType = "client"
	ActorManager ActorType = "manager"
	ActorSystem  ActorType = "system"
)

const DefaultActorID = "system"
