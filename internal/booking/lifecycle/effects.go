package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/booking/format"
	"github.com/smallbiznis/venuebook/internal/booking/refund"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	"github.com/smallbiznis/venuebook/internal/config"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultCurrency     = "UAH"
	reasonHoldExpired   = "hold_expired"
	changeKeyPaymentID  = "payment_id"
	changeKeyRefundPaid = "refund_payment_id"
)

// effectInput carries the working copy of the booking. Sync effects mutate
// it and record what they changed for the audit entry.
type effectInput struct {
	tx      *gorm.DB
	action  domain.Action
	booking *domain.Booking
	tc      domain.TransitionContext
	now     time.Time
	changes map[string]any
}

type effectFunc func(ctx context.Context, in *effectInput) error

type effectSet struct {
	genID    *snowflake.Node
	policy   *config.PolicyHolder
	bookings domain.Repository
	payments paymentdomain.Repository
	clients  clientdomain.Repository
	registry map[Effect]effectFunc
}

func newEffectSet(
	genID *snowflake.Node,
	policy *config.PolicyHolder,
	bookings domain.Repository,
	payments paymentdomain.Repository,
	clients clientdomain.Repository,
) *effectSet {
	e := &effectSet{
		genID:    genID,
		policy:   policy,
		bookings: bookings,
		payments: payments,
		clients:  clients,
	}
	e.registry = map[Effect]effectFunc{
		EffectReserveCapacity:       e.capacityMarker("reserved"),
		EffectReleaseCapacity:       e.capacityMarker("released"),
		EffectSetHoldExpiry:         e.setHoldExpiry,
		EffectResetHoldExpiry:       e.setHoldExpiry,
		EffectGenerateBookingNumber: e.generateBookingNumber,
		EffectCreatePaymentRecord:   e.createPaymentRecord,
		EffectUpdatePaymentRecord:   e.recordPaidTotal,
		EffectMarkPaymentFailed:     e.recordPaidTotal,
		EffectSetConfirmedAt:        e.setConfirmedAt,
		EffectSetPaidAt:             e.setPaidAt,
		EffectSetCancelledAt:        e.setCancelledAt,
		EffectCalculateRefund:       e.calculateRefund,
		EffectUpdateClientStats:     e.updateClientStats,
		EffectCreateRefundPayment:   e.createRefundPayment,
	}
	return e
}

func (e *effectSet) apply(ctx context.Context, effect Effect, in *effectInput) error {
	fn, ok := e.registry[effect]
	if !ok {
		return fmt.Errorf("effect %q not registered", effect)
	}
	return fn(ctx, in)
}

// capacityMarker records the capacity change; the seats themselves follow
// from the status the booking moves into.
func (e *effectSet) capacityMarker(kind string) effectFunc {
	return func(_ context.Context, in *effectInput) error {
		in.changes["capacity"] = kind
		in.changes["guests_count"] = in.booking.GuestsCount
		return nil
	}
}

func (e *effectSet) setHoldExpiry(_ context.Context, in *effectInput) error {
	expires := in.now.Add(e.policy.Get().HoldDuration())
	in.booking.HoldExpiresAt = &expires
	in.changes["hold_expires_at"] = expires
	return nil
}

func (e *effectSet) generateBookingNumber(ctx context.Context, in *effectInput) error {
	if in.booking.BookingNumber != nil && *in.booking.BookingNumber != "" {
		return nil
	}
	year := in.now.In(format.Kyiv()).Year()
	seq, err := e.bookings.NextBookingNumber(ctx, in.tx, year, in.now)
	if err != nil {
		return fmt.Errorf("next booking number: %w", err)
	}
	number := format.BookingNumber(year, seq)
	in.booking.BookingNumber = &number
	in.changes["booking_number"] = number
	return nil
}

func (e *effectSet) createPaymentRecord(ctx context.Context, in *effectInput) error {
	amount := in.tc.PaymentAmount
	if amount <= 0 {
		amount = in.booking.DepositAmount
	}
	paymentType := in.tc.PaymentType
	if paymentType == "" {
		paymentType = paymentdomain.PaymentTypeDeposit
	}
	method := in.tc.PaymentMethod
	if method == "" {
		method = paymentdomain.MethodLiqPay
	}

	payment := paymentdomain.Payment{
		ID:           e.genID.Generate(),
		BookingID:    in.booking.ID,
		Amount:       amount,
		Currency:     currencyOf(in.booking),
		Type:         paymentType,
		Method:       method,
		Status:       paymentdomain.PaymentStatusPending,
		ProviderData: datatypes.JSONMap{},
		CreatedAt:    in.now,
		UpdatedAt:    in.now,
	}
	if err := e.payments.Insert(ctx, in.tx, &payment); err != nil {
		return fmt.Errorf("create payment record: %w", err)
	}
	in.booking.Payments = append(in.booking.Payments, payment)
	in.changes[changeKeyPaymentID] = payment.ID.String()
	in.changes["payment_amount"] = amount
	return nil
}

func (e *effectSet) recordPaidTotal(_ context.Context, in *effectInput) error {
	in.changes["total_paid"] = in.booking.TotalPaid()
	return nil
}

func (e *effectSet) setConfirmedAt(_ context.Context, in *effectInput) error {
	now := in.now
	in.booking.ConfirmedAt = &now
	in.booking.HoldExpiresAt = nil
	return nil
}

func (e *effectSet) setPaidAt(_ context.Context, in *effectInput) error {
	now := in.now
	in.booking.PaidAt = &now
	return nil
}

func (e *effectSet) setCancelledAt(_ context.Context, in *effectInput) error {
	now := in.now
	in.booking.CancelledAt = &now
	reason := in.tc.Reason
	if reason == "" && in.action == domain.ActionHoldExpired {
		reason = reasonHoldExpired
	}
	if reason != "" {
		in.booking.CancellationReason = &reason
		in.changes["reason"] = reason
	}
	return nil
}

func (e *effectSet) calculateRefund(_ context.Context, in *effectInput) error {
	var hours float64
	if in.booking.Event != nil {
		hours = in.booking.Event.HoursUntilStart(in.now)
	}
	result := refund.Calculate(hours, in.booking.TotalPaid())
	amount := result.Amount
	reason := result.Reason
	in.booking.RefundAmount = &amount
	in.booking.RefundReason = &reason
	in.changes["refund_amount"] = amount
	in.changes["refund_percent"] = result.Percent
	return nil
}

func (e *effectSet) updateClientStats(ctx context.Context, in *effectInput) error {
	if err := e.clients.IncrementVisits(ctx, in.tx, in.booking.ClientID); err != nil {
		return fmt.Errorf("update client stats: %w", err)
	}
	if in.booking.Client != nil {
		in.booking.Client.VisitsCount++
	}
	return nil
}

func (e *effectSet) createRefundPayment(ctx context.Context, in *effectInput) error {
	var amount int64
	if in.booking.RefundAmount != nil {
		amount = *in.booking.RefundAmount
	}
	if amount <= 0 {
		in.changes["refund_amount"] = int64(0)
		return nil
	}

	payment := paymentdomain.Payment{
		ID:           e.genID.Generate(),
		BookingID:    in.booking.ID,
		Amount:       amount,
		Currency:     currencyOf(in.booking),
		Type:         paymentdomain.PaymentTypeRefund,
		Method:       refundMethod(in.booking.Payments),
		Status:       paymentdomain.PaymentStatusSuccess,
		ProviderData: datatypes.JSONMap{"reason": in.tc.Reason},
		CreatedAt:    in.now,
		UpdatedAt:    in.now,
	}
	if err := e.payments.Insert(ctx, in.tx, &payment); err != nil {
		return fmt.Errorf("create refund payment: %w", err)
	}
	in.booking.Payments = append(in.booking.Payments, payment)
	in.changes[changeKeyRefundPaid] = payment.ID.String()
	in.changes["refund_amount"] = amount
	return nil
}

func currencyOf(b *domain.Booking) string {
	if b.Event != nil && b.Event.Currency != "" {
		return b.Event.Currency
	}
	return defaultCurrency
}

// refundMethod returns money the way the latest counted payment came in.
func refundMethod(payments []paymentdomain.Payment) string {
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].Counts() {
			return payments[i].Method
		}
	}
	return paymentdomain.MethodManual
}
