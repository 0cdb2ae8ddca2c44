// Package bookingtest wires a lifecycle engine over an in-memory database
// and seeds the rows booking tests start from.
package bookingtest

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/venuebook/internal/audit/domain"
	auditrepo "github.com/smallbiznis/venuebook/internal/audit/repository"
	auditservice "github.com/smallbiznis/venuebook/internal/audit/service"
	"github.com/smallbiznis/venuebook/internal/authorization"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/booking/lifecycle"
	bookingrepo "github.com/smallbiznis/venuebook/internal/booking/repository"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	clientrepo "github.com/smallbiznis/venuebook/internal/client/repository"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	"github.com/smallbiznis/venuebook/internal/dbtest"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	eventrepo "github.com/smallbiznis/venuebook/internal/event/repository"
	"github.com/smallbiznis/venuebook/internal/eventlock"
	"github.com/smallbiznis/venuebook/internal/outbox"
	outboxrepo "github.com/smallbiznis/venuebook/internal/outbox/repository"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/venuebook/internal/payment/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Now is the fixed start time of every harness clock.
var Now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type Harness struct {
	DB     *gorm.DB
	Node   *snowflake.Node
	Clock  *clock.FakeClock
	Policy *config.PolicyHolder
	Queue  *outbox.Queue
	Engine *lifecycle.Engine
	Loader *bookingrepo.Loader
	Audit  auditdomain.Service

	Bookings domain.Repository
	Events   eventdomain.Repository
	Clients  clientdomain.Repository
	Payments paymentdomain.Repository
}

func New(t testing.TB) *Harness {
	t.Helper()
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(Now)
	log := zap.NewNop()

	enforcer, err := authorization.NewEnforcer()
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	h := &Harness{
		DB:       db,
		Node:     node,
		Clock:    clk,
		Policy:   config.NewStaticPolicyHolder(config.DefaultBookingPolicy()),
		Queue:    outbox.NewQueue(),
		Bookings: bookingrepo.Provide(),
		Events:   eventrepo.Provide(),
		Clients:  clientrepo.Provide(),
		Payments: paymentrepo.Provide(),
	}
	h.Loader = bookingrepo.NewLoader(h.Bookings, h.Events, h.Clients, h.Payments)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	h.Audit = audit

	h.Engine = lifecycle.NewEngine(lifecycle.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      clk,
		Policy:     h.Policy,
		Locker:     eventlock.NewKeyedMutex(),
		Queue:      h.Queue,
		Loader:     h.Loader,
		Bookings:   h.Bookings,
		Events:     h.Events,
		Clients:    h.Clients,
		Payments:   h.Payments,
		Outbox:     outboxrepo.Provide(),
		Audit:      audit,
		Authorizer: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
	})
	return h
}

type EventOption func(*eventdomain.Event)

func WithCapacity(min, max int) EventOption {
	return func(e *eventdomain.Event) {
		e.CapacityMin = min
		e.CapacityMax = max
	}
}

func WithStatus(status eventdomain.EventStatus) EventOption {
	return func(e *eventdomain.Event) { e.Status = status }
}

// StartingIn places the event start d after the harness clock; it lasts 3h.
func StartingIn(d time.Duration) EventOption {
	return func(e *eventdomain.Event) {
		e.DateStart = Now.Add(d)
		e.DateEnd = e.DateStart.Add(3 * time.Hour)
	}
}

func WithPricing(perPerson, base int64, depositPercent int) EventOption {
	return func(e *eventdomain.Event) {
		e.PricePerPerson = perPerson
		e.BasePrice = base
		e.DepositPercent = depositPercent
	}
}

// SeedEvent inserts a published event with room for 10 guests starting in a week.
func (h *Harness) SeedEvent(t testing.TB, opts ...EventOption) *eventdomain.Event {
	t.Helper()
	id := h.Node.Generate()
	event := &eventdomain.Event{
		ID:             id,
		Title:          "Квест-вечірка",
		Slug:           "event-" + id.String(),
		Location:       "Київ, вул. Хрещатик 1",
		CapacityMin:    1,
		CapacityMax:    10,
		PricePerPerson: 50000,
		DepositPercent: 30,
		Currency:       "UAH",
		DateStart:      Now.Add(7 * 24 * time.Hour),
		DateEnd:        Now.Add(7*24*time.Hour + 3*time.Hour),
		Status:         eventdomain.EventStatusPublished,
		CreatedAt:      Now,
		UpdatedAt:      Now,
	}
	for _, opt := range opts {
		opt(event)
	}
	if err := h.Events.Insert(context.Background(), h.DB, event); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return event
}

func (h *Harness) SeedClient(t testing.TB, phone string) *clientdomain.Client {
	t.Helper()
	client := &clientdomain.Client{
		ID:        h.Node.Generate(),
		Phone:     phone,
		FullName:  "Тестовий Клієнт",
		Source:    clientdomain.SourceWebsite,
		CreatedAt: Now,
		UpdatedAt: Now,
	}
	if err := h.Clients.Insert(context.Background(), h.DB, client); err != nil {
		t.Fatalf("insert client: %v", err)
	}
	return client
}

// SeedBooking inserts a booking for guests seats in the given status, priced
// from the event.
func (h *Harness) SeedBooking(t testing.TB, event *eventdomain.Event, client *clientdomain.Client, guests int, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	total := event.PricePerPerson*int64(guests) + event.BasePrice
	booking := &domain.Booking{
		ID:            h.Node.Generate(),
		EventID:       event.ID,
		ClientID:      client.ID,
		GuestsCount:   guests,
		TotalPrice:    total,
		DepositAmount: total * int64(event.DepositPercent) / 100,
		Status:        status,
		CreatedAt:     h.Clock.Now(),
		UpdatedAt:     h.Clock.Now(),
	}
	if status == domain.StatusHold {
		expires := h.Clock.Now().Add(h.Policy.Get().HoldDuration())
		booking.HoldExpiresAt = &expires
	}
	if err := h.Bookings.Insert(context.Background(), h.DB, booking); err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return booking
}

func (h *Harness) SeedPayment(t testing.TB, bookingID snowflake.ID, amount int64, paymentType paymentdomain.PaymentType, status paymentdomain.PaymentStatus) *paymentdomain.Payment {
	t.Helper()
	payment := &paymentdomain.Payment{
		ID:           h.Node.Generate(),
		BookingID:    bookingID,
		Amount:       amount,
		Currency:     "UAH",
		Type:         paymentType,
		Method:       paymentdomain.MethodLiqPay,
		Status:       status,
		ProviderData: datatypes.JSONMap{},
		CreatedAt:    h.Clock.Now(),
		UpdatedAt:    h.Clock.Now(),
	}
	if err := h.Payments.Insert(context.Background(), h.DB, payment); err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	return payment
}

// Reload reads the booking with its relations.
func (h *Harness) Reload(t testing.TB, id snowflake.ID) *domain.Booking {
	t.Helper()
	booking, err := h.Loader.Load(context.Background(), h.DB, id)
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking == nil {
		t.Fatalf("booking %s not found", id)
	}
	return booking
}

// Count runs a COUNT query.
func (h *Harness) Count(t testing.TB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := h.DB.Raw(query, args...).Scan(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
