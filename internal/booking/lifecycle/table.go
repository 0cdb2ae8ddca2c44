// Package lifecycle drives bookings through their statuses.
package lifecycle

import (
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	notificationdomain "github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/notification/template"
)

type Guard string

const (
	GuardEventPublished        Guard = "eventPublished"
	GuardCapacityAvailable     Guard = "capacityAvailable"
	GuardPhoneValid            Guard = "phoneValid"
	GuardHoldNotExpired        Guard = "holdNotExpired"
	GuardPaymentVerified       Guard = "paymentVerified"
	GuardDepositAmountMet      Guard = "depositAmountMet"
	GuardFullAmountMet         Guard = "fullAmountMet"
	GuardEventDatePassed       Guard = "eventDatePassed"
	GuardActorIsManager        Guard = "actorIsManager"
	GuardHasRefundablePayments Guard = "hasRefundablePayments"
)

type Effect string

const (
	EffectReserveCapacity       Effect = "reserveCapacity"
	EffectReleaseCapacity       Effect = "releaseCapacity"
	EffectSetHoldExpiry         Effect = "setHoldExpiry"
	EffectResetHoldExpiry       Effect = "resetHoldExpiry"
	EffectGenerateBookingNumber Effect = "generateBookingNumber"
	EffectCreatePaymentRecord   Effect = "createPaymentRecord"
	EffectUpdatePaymentRecord   Effect = "updatePaymentRecord"
	EffectMarkPaymentFailed     Effect = "markPaymentFailed"
	EffectSetConfirmedAt        Effect = "setConfirmedAt"
	EffectSetPaidAt             Effect = "setPaidAt"
	EffectSetCancelledAt        Effect = "setCancelledAt"
	EffectCalculateRefund       Effect = "calculateRefund"
	EffectUpdateClientStats     Effect = "updateClientStats"
	EffectCreateRefundPayment   Effect = "createRefundPayment"

	EffectNotifyClientBookingCreated   Effect = "notifyClientBookingCreated"
	EffectNotifyManagerNewBooking      Effect = "notifyManagerNewBooking"
	EffectNotifyClientPaymentPending   Effect = "notifyClientPaymentPending"
	EffectNotifyClientHoldExpired      Effect = "notifyClientHoldExpired"
	EffectNotifyManagerHoldExpired     Effect = "notifyManagerHoldExpired"
	EffectNotifyClientConfirmed        Effect = "notifyClientConfirmed"
	EffectNotifyManagerConfirmed       Effect = "notifyManagerConfirmed"
	EffectNotifyClientPaymentFailed    Effect = "notifyClientPaymentFailed"
	EffectNotifyClientFullyPaid        Effect = "notifyClientFullyPaid"
	EffectNotifyManagerPaymentReceived Effect = "notifyManagerPaymentReceived"
	EffectNotifyClientCompleted        Effect = "notifyClientCompleted"
	EffectNotifyManagerNoShow          Effect = "notifyManagerNoShow"
	EffectNotifyClientCancelled        Effect = "notifyClientCancelled"
	EffectNotifyManagerCancelled       Effect = "notifyManagerCancelled"
	EffectNotifyClientRefunded         Effect = "notifyClientRefunded"
)

// Rule is one row of the transition table.
type Rule struct {
	Action  domain.Action
	From    []domain.BookingStatus
	To      domain.BookingStatus
	Guards  []Guard
	Effects []Effect
}

// Allows reports whether the rule applies to a booking in status.
func (r Rule) Allows(status domain.BookingStatus) bool {
	for _, from := range r.From {
		if from == status {
			return true
		}
	}
	return false
}

var table = map[domain.Action]Rule{
	domain.ActionSubmit: {
		From:   []domain.BookingStatus{domain.StatusDraft},
		To:     domain.StatusHold,
		Guards: []Guard{GuardEventPublished, GuardCapacityAvailable, GuardPhoneValid},
		Effects: []Effect{
			EffectReserveCapacity,
			EffectSetHoldExpiry,
			EffectGenerateBookingNumber,
			EffectNotifyClientBookingCreated,
			EffectNotifyManagerNewBooking,
		},
	},
	domain.ActionInitiatePayment: {
		From:    []domain.BookingStatus{domain.StatusHold},
		To:      domain.StatusPendingPayment,
		Guards:  []Guard{GuardHoldNotExpired},
		Effects: []Effect{EffectCreatePaymentRecord, EffectNotifyClientPaymentPending},
	},
	domain.ActionHoldExpired: {
		From: []domain.BookingStatus{domain.StatusHold},
		To:   domain.StatusCancelled,
		Effects: []Effect{
			EffectReleaseCapacity,
			EffectSetCancelledAt,
			EffectNotifyClientHoldExpired,
			EffectNotifyManagerHoldExpired,
		},
	},
	domain.ActionDepositPaid: {
		From:   []domain.BookingStatus{domain.StatusPendingPayment},
		To:     domain.StatusConfirmed,
		Guards: []Guard{GuardPaymentVerified, GuardDepositAmountMet},
		Effects: []Effect{
			EffectUpdatePaymentRecord,
			EffectSetConfirmedAt,
			EffectNotifyClientConfirmed,
			EffectNotifyManagerConfirmed,
		},
	},
	domain.ActionPaymentFailed: {
		From:    []domain.BookingStatus{domain.StatusPendingPayment},
		To:      domain.StatusHold,
		Effects: []Effect{EffectMarkPaymentFailed, EffectResetHoldExpiry, EffectNotifyClientPaymentFailed},
	},
	domain.ActionFullPayment: {
		From:   []domain.BookingStatus{domain.StatusConfirmed},
		To:     domain.StatusPaid,
		Guards: []Guard{GuardPaymentVerified, GuardFullAmountMet},
		Effects: []Effect{
			EffectUpdatePaymentRecord,
			EffectSetPaidAt,
			EffectNotifyClientFullyPaid,
			EffectNotifyManagerPaymentReceived,
		},
	},
	domain.ActionEventCompleted: {
		From:    []domain.BookingStatus{domain.StatusConfirmed, domain.StatusPaid},
		To:      domain.StatusCompleted,
		Guards:  []Guard{GuardEventDatePassed},
		Effects: []Effect{EffectUpdateClientStats, EffectNotifyClientCompleted},
	},
	domain.ActionMarkNoShow: {
		From:    []domain.BookingStatus{domain.StatusConfirmed, domain.StatusPaid},
		To:      domain.StatusNoShow,
		Guards:  []Guard{GuardActorIsManager},
		Effects: []Effect{EffectNotifyManagerNoShow},
	},
	domain.ActionCancel: {
		From: []domain.BookingStatus{
			domain.StatusDraft,
			domain.StatusHold,
			domain.StatusPendingPayment,
			domain.StatusConfirmed,
			domain.StatusPaid,
		},
		To: domain.StatusCancelled,
		Effects: []Effect{
			EffectReleaseCapacity,
			EffectCalculateRefund,
			EffectSetCancelledAt,
			EffectNotifyClientCancelled,
			EffectNotifyManagerCancelled,
		},
	},
	domain.ActionProcessRefund: {
		From:    []domain.BookingStatus{domain.StatusCancelled},
		To:      domain.StatusRefunded,
		Guards:  []Guard{GuardHasRefundablePayments},
		Effects: []Effect{EffectCreateRefundPayment, EffectNotifyClientRefunded},
	},
}

// Lookup returns the rule for action.
func Lookup(action domain.Action) (Rule, bool) {
	rule, ok := table[action]
	if !ok {
		return Rule{}, false
	}
	rule.Action = action
	return rule, true
}

// Actions lists every action in the table.
func Actions() []domain.Action {
	actions := make([]domain.Action, 0, len(table))
	for action := range table {
		actions = append(actions, action)
	}
	return actions
}

type notifySpec struct {
	template  string
	recipient notificationdomain.RecipientType
}

var notifyEffects = map[Effect]notifySpec{
	EffectNotifyClientBookingCreated:   {template.BookingCreated, notificationdomain.RecipientClient},
	EffectNotifyManagerNewBooking:      {template.ManagerNewBooking, notificationdomain.RecipientManager},
	EffectNotifyClientPaymentPending:   {template.PaymentPending, notificationdomain.RecipientClient},
	EffectNotifyClientHoldExpired:      {template.HoldExpired, notificationdomain.RecipientClient},
	EffectNotifyManagerHoldExpired:     {template.ManagerHoldExpired, notificationdomain.RecipientManager},
	EffectNotifyClientConfirmed:        {template.BookingConfirmed, notificationdomain.RecipientClient},
	EffectNotifyManagerConfirmed:       {template.ManagerBookingConfirmed, notificationdomain.RecipientManager},
	EffectNotifyClientPaymentFailed:    {template.PaymentFailed, notificationdomain.RecipientClient},
	EffectNotifyClientFullyPaid:        {template.BookingPaid, notificationdomain.RecipientClient},
	EffectNotifyManagerPaymentReceived: {template.ManagerPaymentReceived, notificationdomain.RecipientManager},
	EffectNotifyClientCompleted:        {template.BookingCompleted, notificationdomain.RecipientClient},
	EffectNotifyManagerNoShow:          {template.ManagerNoShow, notificationdomain.RecipientManager},
	EffectNotifyClientCancelled:        {template.BookingCancelled, notificationdomain.RecipientClient},
	EffectNotifyManagerCancelled:       {template.ManagerBookingCancelled, notificationdomain.RecipientManager},
	EffectNotifyClientRefunded:         {template.BookingRefunded, notificationdomain.RecipientClient},
}

// IsNotify reports whether the effect is delivered through the outbox.
func IsNotify(effect Effect) bool {
	_, ok := notifyEffects[effect]
	return ok
}
