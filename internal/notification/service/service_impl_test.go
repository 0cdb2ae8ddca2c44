package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	clientrepo "github.com/smallbiznis/venuebook/internal/client/repository"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	"github.com/smallbiznis/venuebook/internal/dbtest"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	managerdomain "github.com/smallbiznis/venuebook/internal/manager/domain"
	managerrepo "github.com/smallbiznis/venuebook/internal/manager/repository"
	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/notification/repository"
	"github.com/smallbiznis/venuebook/internal/notification/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeTransport struct {
	channel domain.Channel

	mu       sync.Mutex
	failures int
	sent     []string
}

func (f *fakeTransport) Channel() domain.Channel { return f.channel }

func (f *fakeTransport) Send(_ context.Context, destination string, payload domain.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("transport unavailable")
	}
	f.sent = append(f.sent, destination+"|"+payload.Text)
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	db         *gorm.DB
	clock      *clock.FakeClock
	dispatcher *Dispatcher
	telegram   *fakeTransport
	repo       domain.Repository
	client     *clientdomain.Client
	booking    *bookingdomain.Booking
}

func newFixture(t *testing.T, cfg config.Config, transports ...domain.Transport) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	chatID := "555"
	client := &clientdomain.Client{
		ID:             node.Generate(),
		Phone:          "+380671234567",
		FullName:       "Олена",
		TelegramChatID: &chatID,
		Source:         clientdomain.SourceWebsite,
		CreatedAt:      clk.Now(),
		UpdatedAt:      clk.Now(),
	}
	require.NoError(t, clientrepo.Provide().Insert(context.Background(), db, client))

	number := "BK-2025-0001"
	booking := &bookingdomain.Booking{
		ID:            node.Generate(),
		BookingNumber: &number,
		ClientID:      client.ID,
		GuestsCount:   2,
		TotalPrice:    100000,
		DepositAmount: 30000,
		Client:        client,
		Event:         &eventdomain.Event{Title: "Квест", DateStart: clk.Now().Add(48 * time.Hour)},
	}

	tg := &fakeTransport{channel: domain.ChannelTelegram}
	if len(transports) == 0 {
		transports = []domain.Transport{tg}
	}

	repo := repository.Provide()
	d := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Config:     cfg,
		Policy:     config.NewStaticPolicyHolder(config.DefaultBookingPolicy()),
		Repo:       repo,
		Clients:    clientrepo.Provide(),
		Managers:   managerrepo.Provide(),
		Transports: transports,
	})
	return &fixture{db: db, clock: clk, dispatcher: d, telegram: tg, repo: repo, client: client, booking: booking}
}

func (f *fixture) dispatchToClient(t *testing.T) domain.Notification {
	t.Helper()
	created, err := f.dispatcher.Dispatch(context.Background(), template.BookingCreated,
		domain.RecipientClient, f.client.ID.String(), domain.TemplateContext{Booking: f.booking})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *domain.Notification {
	t.Helper()
	n, err := f.repo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func TestDispatchCreatesRowPerRegisteredChannel(t *testing.T) {
	f := newFixture(t, config.Config{})

	n := f.dispatchToClient(t)
	stored := f.reload(t, n.ID)

	assert.Equal(t, domain.ChannelTelegram, stored.Channel)
	assert.Equal(t, domain.StatusQueued, stored.Status)
	require.NotNil(t, stored.BookingID)
	assert.Equal(t, f.booking.ID, *stored.BookingID)
	assert.Contains(t, domain.PayloadFromMap(stored.Payload).Text, "BK-2025-0001")
}

func TestDispatchUnknownTemplateIsNoop(t *testing.T) {
	f := newFixture(t, config.Config{})

	created, err := f.dispatcher.Dispatch(context.Background(), "does_not_exist",
		domain.RecipientClient, f.client.ID.String(), domain.TemplateContext{})
	require.NoError(t, err)
	assert.Empty(t, created)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM notifications`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestProcessNotificationRetriesThenSends(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.telegram.failures = 2
	n := f.dispatchToClient(t)
	ctx := context.Background()

	require.NoError(t, f.dispatcher.ProcessNotification(ctx, n.ID))
	stored := f.reload(t, n.ID)
	assert.Equal(t, domain.StatusRetry, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.True(t, stored.ScheduledAt.Equal(f.clock.Now().Add(30*time.Second)))

	f.clock.Advance(30 * time.Second)
	processed, err := f.dispatcher.ProcessDue(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	stored = f.reload(t, n.ID)
	assert.Equal(t, domain.StatusRetry, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.True(t, stored.ScheduledAt.Equal(f.clock.Now().Add(2*time.Minute)))

	f.clock.Advance(2 * time.Minute)
	_, err = f.dispatcher.ProcessDue(ctx, 50)
	require.NoError(t, err)
	stored = f.reload(t, n.ID)
	assert.Equal(t, domain.StatusSent, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.NotNil(t, stored.SentAt)
	assert.Equal(t, 1, f.telegram.sentCount())
}

func TestProcessNotificationFailsPermanently(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.telegram.failures = 10
	n := f.dispatchToClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.dispatcher.ProcessNotification(ctx, n.ID))
		f.clock.Advance(10 * time.Minute)
	}

	stored := f.reload(t, n.ID)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "transport unavailable")

	// terminal rows are left alone
	require.NoError(t, f.dispatcher.ProcessNotification(ctx, n.ID))
	assert.Equal(t, 3, f.reload(t, n.ID).RetryCount)
}

func TestProcessDueSkipsFutureRows(t *testing.T) {
	f := newFixture(t, config.Config{})
	ctx := context.Background()

	created, err := f.dispatcher.Dispatch(ctx, template.Reminder24h, domain.RecipientClient,
		f.client.ID.String(), domain.TemplateContext{Booking: f.booking},
		domain.WithScheduledAt(f.clock.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Len(t, created, 1)

	processed, err := f.dispatcher.ProcessDue(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, processed)

	f.clock.Advance(time.Hour)
	processed, err = f.dispatcher.ProcessDue(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, domain.StatusSent, f.reload(t, created[0].ID).Status)
}

func TestManagerDestinationFallsBackToDefaultChat(t *testing.T) {
	cfg := config.Config{Telegram: config.TelegramConfig{DefaultChatID: "-100200"}}
	f := newFixture(t, cfg)
	ctx := context.Background()

	created, err := f.dispatcher.Dispatch(ctx, template.ManagerNewBooking, domain.RecipientManager, "",
		domain.TemplateContext{Booking: f.booking})
	require.NoError(t, err)
	require.Len(t, created, 1)

	require.NoError(t, f.dispatcher.ProcessNotification(ctx, created[0].ID))
	assert.Equal(t, domain.StatusSent, f.reload(t, created[0].ID).Status)
	require.Equal(t, 1, f.telegram.sentCount())
	assert.Contains(t, f.telegram.sent[0], "-100200|")
}

func TestManagerDestinationPrefersManagerRecord(t *testing.T) {
	cfg := config.Config{Telegram: config.TelegramConfig{DefaultChatID: "-100200"}}
	f := newFixture(t, cfg)
	ctx := context.Background()

	chatID := "777"
	manager := &managerdomain.Manager{
		ID:             dbtest.Node(t).Generate(),
		FullName:       "Марко",
		TelegramChatID: &chatID,
		IsActive:       true,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	}
	require.NoError(t, managerrepo.Provide().Insert(ctx, f.db, manager))

	created, err := f.dispatcher.Dispatch(ctx, template.ManagerNoShow, domain.RecipientManager,
		manager.ID.String(), domain.TemplateContext{Booking: f.booking})
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.ProcessNotification(ctx, created[0].ID))
	assert.Contains(t, f.telegram.sent[0], "777|")
}

func TestMissingDestinationGoesThroughRetry(t *testing.T) {
	f := newFixture(t, config.Config{})
	ctx := context.Background()

	created, err := f.dispatcher.Dispatch(ctx, template.ManagerNewBooking, domain.RecipientManager, "",
		domain.TemplateContext{Booking: f.booking})
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.ProcessNotification(ctx, created[0].ID))

	stored := f.reload(t, created[0].ID)
	assert.Equal(t, domain.StatusRetry, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, domain.ErrNoDestination.Error())
}
