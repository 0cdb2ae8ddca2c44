package outbox_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/booking/bookingtest"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	notificationdomain "github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/notification/template"
	"github.com/smallbiznis/venuebook/internal/outbox"
	"github.com/smallbiznis/venuebook/internal/outbox/domain"
	outboxrepo "github.com/smallbiznis/venuebook/internal/outbox/repository"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type stubDispatcher struct {
	mu    sync.Mutex
	err   error
	calls []notificationdomain.TemplateContext
}

func (d *stubDispatcher) Dispatch(_ context.Context, _ string, _ notificationdomain.RecipientType, _ string, tctx notificationdomain.TemplateContext, _ ...notificationdomain.DispatchOption) ([]notificationdomain.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, tctx)
	return nil, d.err
}

func (d *stubDispatcher) ProcessNotification(context.Context, snowflake.ID) error { return nil }

func (d *stubDispatcher) ProcessDue(context.Context, int) (int, error) { return 0, nil }

type fixture struct {
	*bookingtest.Harness
	repo       domain.Repository
	relay      *outbox.Relay
	dispatcher *stubDispatcher
	booking    *bookingdomain.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := bookingtest.New(t)
	event := h.SeedEvent(t)
	client := h.SeedClient(t, "+380671234567")
	booking := h.SeedBooking(t, event, client, 2, bookingdomain.StatusConfirmed)

	repo := outboxrepo.Provide()
	dispatcher := &stubDispatcher{}
	relay := outbox.NewRelay(outbox.Params{
		DB:         h.DB,
		Log:        zap.NewNop(),
		Clock:      h.Clock,
		Queue:      h.Queue,
		Repo:       repo,
		Loader:     h.Loader,
		Dispatcher: dispatcher,
	})
	return &fixture{Harness: h, repo: repo, relay: relay, dispatcher: dispatcher, booking: booking}
}

func (f *fixture) insertEffect(t *testing.T, age time.Duration, payload datatypes.JSONMap) *domain.Effect {
	t.Helper()
	if payload == nil {
		payload = datatypes.JSONMap{}
	}
	effect := &domain.Effect{
		ID:            f.Node.Generate(),
		BookingID:     f.booking.ID,
		Effect:        "notifyClientConfirmed",
		TemplateID:    template.BookingConfirmed,
		RecipientType: string(notificationdomain.RecipientClient),
		RecipientID:   f.booking.ClientID.String(),
		Status:        domain.StatusPending,
		Payload:       payload,
		CreatedAt:     f.Clock.Now().Add(-age),
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.DB, effect))
	return effect
}

func TestRelayPendingDeliversOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.SeedPayment(t, f.booking.ID, 30000, paymentdomain.PaymentTypeDeposit, paymentdomain.PaymentStatusSuccess)
	effect := f.insertEffect(t, 5*time.Minute, datatypes.JSONMap{domain.PayloadPaymentID: payment.ID.String()})

	relayed, err := f.relay.RelayPending(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, relayed)
	require.Len(t, f.dispatcher.calls, 1)
	require.NotNil(t, f.dispatcher.calls[0].Payment)
	assert.Equal(t, payment.ID, f.dispatcher.calls[0].Payment.ID)
	assert.Equal(t, f.booking.ID, f.dispatcher.calls[0].Booking.ID)

	stored, err := f.repo.FindByID(ctx, f.DB, effect.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, stored.Status)
	assert.Equal(t, 1, stored.Attempts)

	relayed, err = f.relay.RelayPending(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, relayed)
	assert.Len(t, f.dispatcher.calls, 1)
}

func TestRelayPendingRespectsGrace(t *testing.T) {
	f := newFixture(t)
	f.insertEffect(t, 10*time.Second, nil)

	relayed, err := f.relay.RelayPending(context.Background(), time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, relayed)
	assert.Empty(t, f.dispatcher.calls)
}

func TestRelayFailuresEndInFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dispatcher.err = errors.New("telegram down")
	effect := f.insertEffect(t, 5*time.Minute, nil)

	for i := 0; i < domain.MaxAttempts; i++ {
		require.NoError(t, f.relay.Relay(ctx, effect.ID))
	}

	stored, err := f.repo.FindByID(ctx, f.DB, effect.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, domain.MaxAttempts, stored.Attempts)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "telegram down", *stored.LastError)

	require.NoError(t, f.relay.Relay(ctx, effect.ID))
	assert.Len(t, f.dispatcher.calls, domain.MaxAttempts)
}

func TestRelayStoresLongErrorAsValidUTF8(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dispatcher.err = errors.New("x" + strings.Repeat("помилка ", 200))
	effect := f.insertEffect(t, 5*time.Minute, nil)

	require.NoError(t, f.relay.Relay(ctx, effect.ID))

	stored, err := f.repo.FindByID(ctx, f.DB, effect.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastError)
	assert.True(t, utf8.ValidString(*stored.LastError))
	assert.LessOrEqual(t, len(*stored.LastError), 1000)
	assert.True(t, strings.HasPrefix(f.dispatcher.err.Error(), *stored.LastError))
}

func TestQueueOfferDropsWhenFull(t *testing.T) {
	q := outbox.NewQueue()
	ids := make([]snowflake.ID, 1025)
	for i := range ids {
		ids[i] = snowflake.ID(i + 1)
	}
	assert.Equal(t, 1, q.Offer(ids...))
	assert.Equal(t, 1024, q.Len())
}
