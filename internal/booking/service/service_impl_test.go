package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/venuebook/internal/booking/bookingtest"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/booking/service"
	clientrepo "github.com/smallbiznis/venuebook/internal/client/repository"
	clientservice "github.com/smallbiznis/venuebook/internal/client/service"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	promodomain "github.com/smallbiznis/venuebook/internal/promo/domain"
	promorepo "github.com/smallbiznis/venuebook/internal/promo/repository"
	"github.com/smallbiznis/venuebook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	*bookingtest.Harness
	svc    domain.Service
	promos promodomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := bookingtest.New(t)
	promos := promorepo.Provide()
	clients := clientservice.New(clientservice.Params{
		DB:    h.DB,
		Log:   zap.NewNop(),
		GenID: h.Node,
		Clock: h.Clock,
		Repo:  clientrepo.Provide(),
	})
	svc := service.New(service.Params{
		DB:          h.DB,
		Log:         zap.NewNop(),
		GenID:       h.Node,
		Clock:       h.Clock,
		Repo:        h.Bookings,
		Loader:      h.Loader,
		Events:      h.Events,
		Promos:      promos,
		Clients:     clients,
		Audit:       h.Audit,
		Transitions: h.Engine,
	})
	return &fixture{Harness: h, svc: svc, promos: promos}
}

func (f *fixture) seedPromo(t *testing.T, code string, percent int, maxUses *int) {
	t.Helper()
	require.NoError(t, f.promos.Insert(context.Background(), f.DB, &promodomain.PromoCode{
		ID:              f.Node.Generate(),
		Code:            code,
		DiscountPercent: percent,
		MaxUses:         maxUses,
		ValidFrom:       bookingtest.Now.Add(-time.Hour),
		IsActive:        true,
		CreatedAt:       bookingtest.Now,
		UpdatedAt:       bookingtest.Now,
	}))
}

func TestPrice(t *testing.T) {
	event := eventdomain.Event{PricePerPerson: 50000, BasePrice: 10000, DepositPercent: 30}

	total, deposit := service.Price(event, 2, 0)
	assert.Equal(t, int64(110000), total)
	assert.Equal(t, int64(33000), deposit)

	total, deposit = service.Price(event, 2, 10)
	assert.Equal(t, int64(99000), total)
	assert.Equal(t, int64(29700), deposit)

	total, deposit = service.Price(eventdomain.Event{PricePerPerson: 333, DepositPercent: 33}, 1, 0)
	assert.Equal(t, int64(333), total)
	assert.Equal(t, int64(109), deposit)
}

func TestCreateBookingSubmitsAsClient(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t, bookingtest.WithPricing(50000, 0, 30))

	booking, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		EventID:     event.ID,
		Phone:       "067 123 45 67",
		FullName:    "Олена Петренко",
		GuestsCount: 3,
		Notes:       "біля вікна",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusHold, booking.Status)
	assert.Equal(t, "BK-2025-0001", booking.Number())
	assert.Equal(t, int64(150000), booking.TotalPrice)
	assert.Equal(t, int64(45000), booking.DepositAmount)
	require.NotNil(t, booking.Client)
	assert.Equal(t, "+380671234567", booking.Client.Phone)

	trail, err := f.svc.AuditTrail(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "client", trail[0].ActorType)
	assert.Equal(t, booking.ClientID.String(), trail[0].ActorID)

	byNumber, err := f.svc.GetByNumber(context.Background(), "bk-2025-0001")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, byNumber.ID)
	require.NotNil(t, byNumber.Event)
	assert.Equal(t, event.ID, byNumber.Event.ID)
}

func TestCreateBookingReusesClientByPhone(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)

	first, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		EventID: event.ID, Phone: "+380671234567", FullName: "Олена", GuestsCount: 1,
	})
	require.NoError(t, err)
	second, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		EventID: event.ID, Phone: "80671234567", FullName: "Олена П.", Email: "olena@example.com", GuestsCount: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ClientID, second.ClientID)
	require.NotNil(t, second.Client.Email)
	assert.Equal(t, "olena@example.com", *second.Client.Email)
	assert.Equal(t, "BK-2025-0002", second.Number())
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t, bookingtest.WithCapacity(2, 6))
	hidden := f.SeedEvent(t, bookingtest.WithStatus(eventdomain.EventStatusDraft))

	cases := []struct {
		name string
		req  domain.CreateBookingRequest
		want error
	}{
		{"unknown event", domain.CreateBookingRequest{EventID: f.Node.Generate(), Phone: "+380671234567", GuestsCount: 2}, domain.ErrEventNotFound},
		{"unpublished event", domain.CreateBookingRequest{EventID: hidden.ID, Phone: "+380671234567", GuestsCount: 2}, domain.ErrEventNotOpen},
		{"below minimum", domain.CreateBookingRequest{EventID: event.ID, Phone: "+380671234567", GuestsCount: 1}, domain.ErrInvalidGuests},
		{"above maximum", domain.CreateBookingRequest{EventID: event.ID, Phone: "+380671234567", GuestsCount: 7}, domain.ErrInvalidGuests},
		{"bad phone", domain.CreateBookingRequest{EventID: event.ID, Phone: "12345", GuestsCount: 2}, domain.ErrInvalidPhone},
		{"unknown promo", domain.CreateBookingRequest{EventID: event.ID, Phone: "+380671234567", GuestsCount: 2, PromoCode: "NOPE"}, domain.ErrInvalidPromo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, int64(0), f.Count(t, `SELECT COUNT(*) FROM bookings`))
}

func TestCreateBookingAppliesPromo(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t, bookingtest.WithPricing(10000, 0, 50))
	maxUses := 1
	f.seedPromo(t, "SUMMER", 20, &maxUses)

	booking, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		EventID: event.ID, Phone: "+380671234567", GuestsCount: 2, PromoCode: "summer",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16000), booking.TotalPrice)
	assert.Equal(t, int64(8000), booking.DepositAmount)
	assert.Equal(t, 20, booking.DiscountPercent)
	require.NotNil(t, booking.PromoCode)
	assert.Equal(t, "SUMMER", *booking.PromoCode)

	_, err = f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		EventID: event.ID, Phone: "+380671234568", GuestsCount: 2, PromoCode: "SUMMER",
	})
	require.ErrorIs(t, err, domain.ErrInvalidPromo)
	assert.ErrorIs(t, err, promodomain.ErrExhausted)
}

func TestCreateBookingKeepsDraftWhenSubmitRejected(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t, bookingtest.WithCapacity(1, 4))
	holder := f.SeedClient(t, "+380679999999")
	f.SeedBooking(t, event, holder, 3, domain.StatusHold)

	_, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		EventID: event.ID, Phone: "+380671234567", GuestsCount: 2,
	})
	require.ErrorIs(t, err, domain.ErrGuardFailed)
	assert.Equal(t, domain.GuardCodeCapacityExceeded, domain.Code(err))
	assert.Equal(t, int64(1), f.Count(t, `SELECT COUNT(*) FROM bookings WHERE status = ?`, domain.StatusDraft))
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")

	var ids []string
	for i := 0; i < 5; i++ {
		b := f.SeedBooking(t, event, client, 1, domain.StatusConfirmed)
		ids = append(ids, b.ID.String())
		f.Clock.Advance(time.Minute)
	}
	f.SeedBooking(t, event, client, 1, domain.StatusCancelled)

	page, err := f.svc.List(context.Background(), domain.ListBookingRequest{
		Pagination: pagination.Pagination{PageSize: 3},
		Status:     "confirmed",
	})
	require.NoError(t, err)
	require.Len(t, page.Bookings, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[4], page.Bookings[0].ID.String())
	assert.Equal(t, ids[2], page.Bookings[2].ID.String())

	next, err := f.svc.List(context.Background(), domain.ListBookingRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: page.NextPageToken},
		Status:     domain.StatusConfirmed,
	})
	require.NoError(t, err)
	require.Len(t, next.Bookings, 2)
	assert.False(t, next.HasMore)
	assert.Equal(t, ids[1], next.Bookings[0].ID.String())
	assert.Equal(t, ids[0], next.Bookings[1].ID.String())

	_, err = f.svc.List(context.Background(), domain.ListBookingRequest{Status: "LOST"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.List(context.Background(), domain.ListBookingRequest{
		Pagination: pagination.Pagination{PageToken: "%%%"},
	})
	require.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestGetAndCancel(t *testing.T) {
	f := newFixture(t)
	event := f.SeedEvent(t)
	client := f.SeedClient(t, "+380671234567")
	booking := f.SeedBooking(t, event, client, 2, domain.StatusHold)

	_, err := f.svc.Get(context.Background(), f.Node.Generate())
	require.ErrorIs(t, err, domain.ErrBookingNotFound)

	cancelled, err := f.svc.Cancel(context.Background(), booking.ID, domain.TransitionContext{
		Actor: domain.ActorManager, ActorID: "m-1", Reason: "client called",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	loaded, err := f.svc.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, loaded.Status)
	require.NotNil(t, loaded.CancellationReason)
	assert.Equal(t, "client called", *loaded.CancellationReason)
}
