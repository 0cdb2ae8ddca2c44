package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
)

type Action string

const (
	ActionSubmit          Action = "submit"
	ActionInitiatePayment Action = "initiatePayment"
	ActionHoldExpired     Action = "holdExpired"
	ActionDepositPaid     Action = "depositPaid"
	ActionPaymentFailed   Action = "paymentFailed"
	ActionFullPayment     Action = "fullPayment"
	ActionEventCompleted  Action = "eventCompleted"
	ActionMarkNoShow      Action = "markNoShow"
	ActionCancel          Action = "cancel"
	ActionProcessRefund   Action = "processRefund"
)

// AuditAction is the audit log action for a transition.
func (a Action) AuditAction() string {
	return "booking." + string(a)
}

// TransitionContext carries caller input to guards and effects.
type TransitionContext struct {
	Actor   ActorType
	ActorID string
	Reason  string

	// PaymentAmount overrides the amount recorded by createPaymentRecord.
	// Zero means the booking deposit.
	PaymentAmount int64
	PaymentType   paymentdomain.PaymentType
	PaymentMethod string
}

// ResolvedActor fills in the system defaults.
func (c TransitionContext) ResolvedActor() (ActorType, string) {
	actor := c.Actor
	if actor == "" {
		actor = ActorSystem
	}
	id := c.ActorID
	if id == "" {
		id = DefaultActorID
	}
	return actor, id
}

// Transitioner applies lifecycle actions to bookings.
type Transitioner interface {
	Transition(ctx context.Context, bookingID snowflake.ID, action Action, tc TransitionContext) (*Booking, error)
}
