package service_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/booking/bookingtest"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/payment/domain"
	"github.com/smallbiznis/venuebook/internal/payment/liqpay"
	"github.com/smallbiznis/venuebook/internal/payment/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	*bookingtest.Harness
	adapter *liqpay.Adapter
	svc     domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the engine the service transitions through.
func newFixtureWith(t *testing.T, wrap func(bookingdomain.Transitioner) bookingdomain.Transitioner) *fixture {
	t.Helper()
	h := bookingtest.New(t)
	var transitions bookingdomain.Transitioner = h.Engine
	if wrap != nil {
		transitions = wrap(transitions)
	}
	adapter := liqpay.NewAdapter(liqpay.Config{
		PublicKey:  "sandbox_pub",
		PrivateKey: "sandbox_secret",
		Sandbox:    true,
		BaseURL:    "https://venue.example",
	})
	svc := service.New(service.Params{
		DB:          h.DB,
		Log:         zap.NewNop(),
		GenID:       h.Node,
		Clock:       h.Clock,
		Repo:        h.Payments,
		Provider:    adapter,
		Loader:      h.Loader,
		Transitions: transitions,
	})
	return &fixture{Harness: h, adapter: adapter, svc: svc}
}

func (f *fixture) callback(t *testing.T, orderID, status string, amount float64) (string, string) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"order_id":       orderID,
		"status":         status,
		"amount":         amount,
		"currency":       "UAH",
		"transaction_id": 987654321,
	})
	require.NoError(t, err)
	data := base64.StdEncoding.EncodeToString(raw)
	return data, f.adapter.Sign(data)
}

func TestOrderIDRoundTrip(t *testing.T) {
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	bookingID, paymentID := node.Generate(), node.Generate()

	b, p, err := service.ParseOrderID(service.OrderID(bookingID, paymentID))
	require.NoError(t, err)
	assert.Equal(t, bookingID, b)
	assert.Equal(t, paymentID, p)

	b, p, err = service.ParseOrderID(bookingID.String())
	require.NoError(t, err)
	assert.Equal(t, bookingID, b)
	assert.Zero(t, p)

	_, _, err = service.ParseOrderID("BK-2025-0001")
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestInitiateDepositFromHold(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	resp, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.Contains(t, resp.CheckoutURL, "https://www.liqpay.ua/api/3/checkout?")
	assert.Equal(t, booking.DepositAmount, resp.Payment.Amount)
	assert.Equal(t, domain.PaymentTypeDeposit, resp.Payment.Type)
	assert.Equal(t, bookingdomain.StatusPendingPayment, f.Reload(t, booking.ID).Status)

	again, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.Equal(t, resp.Payment.ID, again.Payment.ID)
}

func TestCheckoutResultPageIsPerBooking(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	resp, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)

	link, err := url.Parse(resp.CheckoutURL)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(link.Query().Get("data"))
	require.NoError(t, err)
	var req map[string]any
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, service.OrderID(booking.ID, resp.Payment.ID), req["order_id"])
	assert.Equal(t, "https://venue.example/booking/"+booking.ID.String()+"/status", req["result_url"])
}

func TestInitiateRejectsUnpayableStatus(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	draft := f.SeedBooking(t, event, client, 2, bookingdomain.StatusDraft)

	_, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: draft.ID})
	require.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)

	held := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)
	_, err = f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: held.ID, Type: domain.PaymentTypeRefund})
	require.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestWebhookConfirmsThenPaysBalance(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t, bookingtest.WithPricing(50000, 0, 30))
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	deposit, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)

	data, sig := f.callback(t, service.OrderID(booking.ID, deposit.Payment.ID), "success", 300.00)
	result, err := f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Equal(t, "depositPaid", result.Action)
	assert.Equal(t, bookingdomain.StatusConfirmed, f.Reload(t, booking.ID).Status)

	replay, err := f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Empty(t, replay.Action)

	balance, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(70000), balance.Payment.Amount)
	assert.Equal(t, domain.PaymentTypeFull, balance.Payment.Type)

	data, sig = f.callback(t, service.OrderID(booking.ID, balance.Payment.ID), "sandbox", 700.00)
	result, err = f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Equal(t, "fullPayment", result.Action)

	stored := f.Reload(t, booking.ID)
	assert.Equal(t, bookingdomain.StatusPaid, stored.Status)
	total, err := f.svc.TotalPaid(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), total)

	_, err = f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)
}

func TestWebhookFullAmountUpfrontConfirmsAndPays(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t, bookingtest.WithPricing(10000, 0, 30))
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 1, bookingdomain.StatusHold)

	resp, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID, Type: domain.PaymentTypeFull})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), resp.Payment.Amount)

	data, sig := f.callback(t, service.OrderID(booking.ID, resp.Payment.ID), "success", 100.00)
	result, err := f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Equal(t, "depositPaid,fullPayment", result.Action)
	assert.Equal(t, bookingdomain.StatusPaid, f.Reload(t, booking.ID).Status)
}

// busyOnce fails the first run of one action the way a contended event
// lock does.
type busyOnce struct {
	next   bookingdomain.Transitioner
	action bookingdomain.Action
	failed bool
}

func (b *busyOnce) Transition(ctx context.Context, id snowflake.ID, action bookingdomain.Action, tc bookingdomain.TransitionContext) (*bookingdomain.Booking, error) {
	if action == b.action && !b.failed {
		b.failed = true
		return nil, bookingdomain.NewConflictError("event is busy, retry")
	}
	return b.next.Transition(ctx, id, action, tc)
}

func TestWebhookRedeliveryAdvancesAfterConflict(t *testing.T) {
	f := newFixtureWith(t, func(next bookingdomain.Transitioner) bookingdomain.Transitioner {
		return &busyOnce{next: next, action: bookingdomain.ActionDepositPaid}
	})
	event := f.SeedEvent(t, bookingtest.WithPricing(50000, 0, 30))
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	deposit, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)

	data, sig := f.callback(t, service.OrderID(booking.ID, deposit.Payment.ID), "success", 300.00)
	_, err = f.svc.HandleWebhook(context.Background(), data, sig)
	require.ErrorIs(t, err, bookingdomain.ErrConflict)

	stored := f.Reload(t, booking.ID)
	assert.Equal(t, bookingdomain.StatusPendingPayment, stored.Status)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Payments[0].Status)

	result, err := f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Equal(t, "depositPaid", result.Action)
	assert.Equal(t, bookingdomain.StatusConfirmed, f.Reload(t, booking.ID).Status)
}

func TestWebhookStaleFailureKeepsNewerAttempt(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	first, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)
	failed, failedSig := f.callback(t, service.OrderID(booking.ID, first.Payment.ID), "failure", 0)
	_, err = f.svc.HandleWebhook(context.Background(), failed, failedSig)
	require.NoError(t, err)
	require.Equal(t, bookingdomain.StatusHold, f.Reload(t, booking.ID).Status)

	second, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)
	require.NotEqual(t, first.Payment.ID, second.Payment.ID)

	result, err := f.svc.HandleWebhook(context.Background(), failed, failedSig)
	require.NoError(t, err)
	assert.Empty(t, result.Action)
	assert.Equal(t, bookingdomain.StatusPendingPayment, f.Reload(t, booking.ID).Status)
}

func TestWebhookFailureReturnsBookingToHold(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	resp, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)

	f.Clock.Advance(5 * time.Minute)
	data, sig := f.callback(t, booking.ID.String(), "failure", 0)
	result, err := f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Equal(t, resp.Payment.ID, result.PaymentID)
	assert.Equal(t, "paymentFailed", result.Action)

	stored := f.Reload(t, booking.ID)
	assert.Equal(t, bookingdomain.StatusHold, stored.Status)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, domain.PaymentStatusFailed, stored.Payments[0].Status)
}

func TestWebhookAmountMismatchIsFailure(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)

	resp, err := f.svc.InitiatePayment(context.Background(), domain.InitiatePaymentRequest{BookingID: booking.ID})
	require.NoError(t, err)

	data, sig := f.callback(t, service.OrderID(booking.ID, resp.Payment.ID), "success", 1.00)
	result, err := f.svc.HandleWebhook(context.Background(), data, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackFailure, result.Status)
	assert.Equal(t, bookingdomain.StatusHold, f.Reload(t, booking.ID).Status)
}

func TestWebhookRejections(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, bookingdomain.StatusPendingPayment)

	data, _ := f.callback(t, booking.ID.String(), "success", 1)
	_, err := f.svc.HandleWebhook(context.Background(), data, "forged")
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.True(t, service.IsClientError(err))

	data, sig := f.callback(t, booking.ID.String(), "processing", 1)
	_, err = f.svc.HandleWebhook(context.Background(), data, sig)
	require.ErrorIs(t, err, domain.ErrEventIgnored)

	data, sig = f.callback(t, booking.ID.String(), "success", 1)
	_, err = f.svc.HandleWebhook(context.Background(), data, sig)
	require.ErrorIs(t, err, domain.ErrNoPendingPayment)

	data, sig = f.callback(t, "not-a-booking", "success", 1)
	_, err = f.svc.HandleWebhook(context.Background(), data, sig)
	require.ErrorIs(t, err, domain.ErrInvalidOrderID)
}
