package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/venuebook/internal/audit/domain"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/venuebook/internal/booking/repository"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	"github.com/smallbiznis/venuebook/internal/clock"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	obslogger "github.com/smallbiznis/venuebook/internal/observability/logger"
	promodomain "github.com/smallbiznis/venuebook/internal/promo/domain"
	"github.com/smallbiznis/venuebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Loader      *bookingrepo.Loader
	Events      eventdomain.Repository
	Promos      promodomain.Repository
	Clients     clientdomain.Service
	Audit       auditdomain.Service
	Transitions domain.Transitioner
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	loader      *bookingrepo.Loader
	events      eventdomain.Repository
	promos      promodomain.Repository
	clients     clientdomain.Service
	audit       auditdomain.Service
	transitions domain.Transitioner
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("booking.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		loader:      p.Loader,
		events:      p.Events,
		promos:      p.Promos,
		clients:     p.Clients,
		audit:       p.Audit,
		transitions: p.Transitions,
	}
}

// CreateBooking prices a new booking, stores it as DRAFT and submits it on
// behalf of the client. When submit is rejected the DRAFT row stays behind
// and the guard error is returned.
func (s *Service) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	log := obslogger.WithContext(ctx, s.log)

	event, err := s.events.FindByID(ctx, s.db, req.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	if !event.IsPublished() {
		return nil, domain.ErrEventNotOpen
	}
	if req.GuestsCount < event.CapacityMin || req.GuestsCount > event.CapacityMax {
		return nil, fmt.Errorf("%w: %d not in %d..%d", domain.ErrInvalidGuests, req.GuestsCount, event.CapacityMin, event.CapacityMax)
	}

	now := s.clock.Now()
	var promo *promodomain.PromoCode
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		promo, err = s.promos.FindByCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		if promo == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPromo, promodomain.ErrNotFound)
		}
		if err := promo.Usable(now); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPromo, err)
		}
	}

	client, err := s.clients.FindOrCreate(ctx, clientdomain.FindOrCreateRequest{
		Phone:          req.Phone,
		FullName:       req.FullName,
		Email:          req.Email,
		TelegramChatID: req.TelegramChatID,
		Source:         clientdomain.SourceWebsite,
	})
	if err != nil {
		if errors.Is(err, clientdomain.ErrInvalidPhone) {
			return nil, domain.ErrInvalidPhone
		}
		return nil, err
	}

	discount := 0
	if promo != nil {
		discount = promo.DiscountPercent
	}
	total, deposit := Price(*event, req.GuestsCount, discount)

	booking := domain.Booking{
		ID:              s.genID.Generate(),
		EventID:         event.ID,
		ClientID:        client.ID,
		GuestsCount:     req.GuestsCount,
		TotalPrice:      total,
		DepositAmount:   deposit,
		Status:          domain.StatusDraft,
		DiscountPercent: discount,
		Notes:           optional(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if promo != nil {
		code := promo.Code
		booking.PromoCode = &code
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if promo != nil {
			ok, err := s.promos.IncrementUses(ctx, tx, promo.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %w", domain.ErrInvalidPromo, promodomain.ErrExhausted)
			}
		}
		return s.repo.Insert(ctx, tx, &booking)
	})
	if err != nil {
		return nil, err
	}

	log.Info("booking drafted",
		zap.String("booking_id", booking.ID.String()),
		zap.String("event_id", event.ID.String()),
		zap.Int("guests", booking.GuestsCount),
		zap.Int64("total_price", total),
	)

	return s.transitions.Transition(ctx, booking.ID, domain.ActionSubmit, domain.TransitionContext{
		Actor:   domain.ActorClient,
		ActorID: client.ID.String(),
	})
}

// Price returns total and deposit in minor units. The discount applies to
// the whole base; both amounts round down.
func Price(event eventdomain.Event, guests, discountPercent int) (total, deposit int64) {
	base := event.PricePerPerson*int64(guests) + event.BasePrice
	total = base - base*int64(discountPercent)/100
	deposit = total * int64(event.DepositPercent) / 100
	return total, deposit
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Booking, error) {
	booking, err := s.loader.Load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	booking, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	if err := s.loader.Attach(ctx, s.db, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBookingRequest) (domain.ListBookingResponse, error) {
	status := domain.BookingStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if status != "" && !knownStatus(status) {
		return domain.ListBookingResponse{}, domain.ErrInvalidStatus
	}

	filter := domain.ListFilter{
		Status:   status,
		EventID:  req.EventID,
		ClientID: req.ClientID,
		Limit:    req.Limit() + 1,
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListBookingResponse{}, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListBookingResponse{}, pagination.ErrInvalidPageToken
		}
		createdAt, err := cursor.CursorTime()
		if err != nil {
			return domain.ListBookingResponse{}, err
		}
		filter.Cursor = &domain.ListCursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListBookingResponse{}, err
	}

	items, pageInfo := pagination.Trim(items, req.Limit(), func(b *domain.Booking) pagination.Cursor {
		return pagination.Cursor{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})

	bookings := make([]domain.Booking, 0, len(items))
	for _, item := range items {
		bookings = append(bookings, *item)
	}
	return domain.ListBookingResponse{PageInfo: pageInfo, Bookings: bookings}, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID, tc domain.TransitionContext) (*domain.Booking, error) {
	return s.transitions.Transition(ctx, id, domain.ActionCancel, tc)
}

// AuditTrail lists the booking's audit entries, oldest first.
func (s *Service) AuditTrail(ctx context.Context, id snowflake.ID) ([]auditdomain.AuditLog, error) {
	booking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	return s.audit.List(ctx, auditdomain.ListAuditLogRequest{
		EntityType: auditdomain.EntityTypeBooking,
		EntityID:   id.String(),
	})
}

func knownStatus(status domain.BookingStatus) bool {
	switch status {
	case domain.StatusDraft, domain.StatusHold, domain.StatusPendingPayment,
		domain.StatusConfirmed, domain.StatusPaid, domain.StatusCompleted,
		domain.StatusNoShow, domain.StatusCancelled, domain.StatusRefunded:
		return true
	}
	return false
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
