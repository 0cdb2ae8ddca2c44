package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusSoldOut   EventStatus = "SOLD_OUT"
	EventStatusArchived  EventStatus = "ARCHIVED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event is a reservable slot with a finite guest capacity. Amounts are in
// minor currency units.
type Event struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Title          string       `gorm:"not null" json:"title"`
	Slug           string       `gorm:"not null" json:"slug"`
	Location       string       `json:"location"`
	CapacityMin    int          `gorm:"not null" json:"capacity_min"`
	CapacityMax    int          `gorm:"not null" json:"capacity_max"`
	PricePerPerson int64        `gorm:"not null" json:"price_per_person"`
	BasePrice      int64        `gorm:"not null" json:"base_price"`
	DepositPercent int          `gorm:"not null" json:"deposit_percent"`
	Currency       string       `gorm:"not null" json:"currency"`
	DateStart      time.Time    `gorm:"not null" json:"date_start"`
	DateEnd        time.Time    `gorm:"not null" json:"date_end"`
	Status         EventStatus  `gorm:"not null" json:"status"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

func (e Event) IsPublished() bool {
	return e.Status == EventStatusPublished
}

// HasEnded reports whether the event finished at or before now.
func (e Event) HasEnded(now time.Time) bool {
	return !e.DateEnd.After(now)
}

// HoursUntilStart is whole hours from now to the event start, truncated
// toward zero.
func (e Event) HoursUntilStart(now time.Time) float64 {
	return math.Trunc(e.DateStart.Sub(now).Hours())
}
