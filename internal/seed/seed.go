// Package seed inserts demo events, a promo code and the default manager so
// a fresh install can take bookings. Every step is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	managerdomain "github.com/smallbiznis/venuebook/internal/manager/domain"
	promodomain "github.com/smallbiznis/venuebook/internal/promo/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultManagerName = "Адміністратор"
	demoPromoCode      = "WELCOME10"
)

var kyiv = mustLoadLocation("Europe/Kyiv")

type demoEvent struct {
	title          string
	location       string
	daysAhead      int
	startHour      int
	duration       time.Duration
	capacityMin    int
	capacityMax    int
	pricePerPerson int64
	basePrice      int64
	depositPercent int
}

var demoEvents = []demoEvent{
	{"Квест «Таємниця старого маєтку»", "Київ, вул. Хрещатик 22", 3, 18, 2 * time.Hour, 2, 6, 45000, 0, 30},
	{"Дитяче свято з аніматорами", "Київ, вул. Саксаганського 70", 5, 12, 3 * time.Hour, 5, 20, 35000, 150000, 50},
	{"Вечір настільних ігор", "Львів, пл. Ринок 10", 7, 19, 4 * time.Hour, 1, 12, 25000, 0, 30},
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	Events   eventdomain.Repository
	Managers managerdomain.Repository
	Promos   promodomain.Repository
}

type Seeder struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	events   eventdomain.Repository
	managers managerdomain.Repository
	promos   promodomain.Repository
}

func New(p Params) *Seeder {
	return &Seeder{
		db:       p.DB,
		log:      p.Log.Named("seed"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config,
		events:   p.Events,
		managers: p.Managers,
		promos:   p.Promos,
	}
}

var Module = fx.Module("seed",
	fx.Provide(New),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, cfg config.Config, s *Seeder) {
	if !cfg.SeedDemoData {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Run(ctx)
		},
	})
}

// Run seeds everything that is missing.
func (s *Seeder) Run(ctx context.Context) error {
	if s.db == nil {
		return errors.New("seed database handle is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureManager(ctx, tx); err != nil {
			return fmt.Errorf("seed manager: %w", err)
		}
		if err := s.ensureEvents(ctx, tx); err != nil {
			return fmt.Errorf("seed events: %w", err)
		}
		if err := s.ensurePromo(ctx, tx); err != nil {
			return fmt.Errorf("seed promo: %w", err)
		}
		return nil
	})
}

func (s *Seeder) ensureManager(ctx context.Context, tx *gorm.DB) error {
	active, err := s.managers.ListActive(ctx, tx)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return nil
	}
	now := s.clock.Now()
	manager := managerdomain.Manager{
		ID:             s.genID.Generate(),
		FullName:       defaultManagerName,
		Email:          optional(s.cfg.SMTP.DefaultEmail),
		TelegramChatID: optional(s.cfg.Telegram.DefaultChatID),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.managers.Insert(ctx, tx, &manager); err != nil {
		return err
	}
	s.log.Info("seeded default manager", zap.String("manager_id", manager.ID.String()))
	return nil
}

func (s *Seeder) ensureEvents(ctx context.Context, tx *gorm.DB) error {
	now := s.clock.Now()
	today := now.In(kyiv)
	for _, demo := range demoEvents {
		day := today.AddDate(0, 0, demo.daysAhead)
		start := time.Date(day.Year(), day.Month(), day.Day(), demo.startHour, 0, 0, 0, kyiv)
		eventSlug := Slug(demo.title, start)

		existing, err := s.events.FindBySlug(ctx, tx, eventSlug)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		event := eventdomain.Event{
			ID:             s.genID.Generate(),
			Title:          demo.title,
			Slug:           eventSlug,
			Location:       demo.location,
			CapacityMin:    demo.capacityMin,
			CapacityMax:    demo.capacityMax,
			PricePerPerson: demo.pricePerPerson,
			BasePrice:      demo.basePrice,
			DepositPercent: demo.depositPercent,
			Currency:       "UAH",
			DateStart:      start.UTC(),
			DateEnd:        start.Add(demo.duration).UTC(),
			Status:         eventdomain.EventStatusPublished,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.events.Insert(ctx, tx, &event); err != nil {
			return err
		}
		s.log.Info("seeded demo event", zap.String("event_id", event.ID.String()), zap.String("slug", event.Slug))
	}
	return nil
}

func (s *Seeder) ensurePromo(ctx context.Context, tx *gorm.DB) error {
	existing, err := s.promos.FindByCode(ctx, tx, demoPromoCode)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	now := s.clock.Now()
	maxUses := 100
	return s.promos.Insert(ctx, tx, &promodomain.PromoCode{
		ID:              s.genID.Generate(),
		Code:            demoPromoCode,
		DiscountPercent: 10,
		MaxUses:         &maxUses,
		ValidFrom:       now,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// Slug builds the public event slug from its title and start date.
func Slug(title string, start time.Time) string {
	return slug.Make(title) + "-" + start.In(kyiv).Format("2006-01-02")
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}
