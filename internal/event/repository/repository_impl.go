package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/event/domain"
	"github.com/smallbiznis/venuebook/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const eventColumns = `id, title, slug, location, capacity_min, capacity_max, price_per_person,
	base_price, deposit_percent, currency, date_start, date_end, status, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, event *domain.Event) error {
	if strings.TrimSpace(event.Slug) == "" {
		return domain.ErrInvalidSlug
	}
	if event.CapacityMin < 1 || event.CapacityMax < event.CapacityMin {
		return domain.ErrInvalidRange
	}
	return conn.WithContext(ctx).Exec(
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Slug,
		event.Location,
		event.CapacityMin,
		event.CapacityMax,
		event.PricePerPerson,
		event.BasePrice,
		event.DepositPercent,
		event.Currency,
		event.DateStart.UTC(),
		event.DateEnd.UTC(),
		event.Status,
		event.CreatedAt.UTC(),
		event.UpdatedAt.UTC(),
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Event, error) {
	var event domain.Event
	err := conn.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) FindBySlug(ctx context.Context, conn *gorm.DB, slug string) (*domain.Event, error) {
	var event domain.Event
	err := conn.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM events WHERE slug = ?`,
		strings.TrimSpace(slug),
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) LockByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Event, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Event{}).Where("id = ?", id)
	if db.SupportsRowLocks(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var events []domain.Event
	if err := stmt.Limit(1).Find(&events).Error; err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *repo) ListStartingBetween(ctx context.Context, conn *gorm.DB, from, to time.Time) ([]*domain.Event, error) {
	var events []*domain.Event
	err := conn.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM events
		 WHERE date_start > ? AND date_start <= ?
		 ORDER BY date_start ASC`,
		from.UTC(),
		to.UTC(),
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ListPublished(ctx context.Context, conn *gorm.DB, from time.Time) ([]*domain.Event, error) {
	var events []*domain.Event
	err := conn.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM events
		 WHERE status = ? AND date_start > ?
		 ORDER BY date_start ASC`,
		domain.EventStatusPublished,
		from.UTC(),
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
