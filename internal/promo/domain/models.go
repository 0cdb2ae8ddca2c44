package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type PromoCode struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Code            string       `gorm:"not null" json:"code"`
	DiscountPercent int          `gorm:"not null" json:"discount_percent"`
	MaxUses         *int         `json:"max_uses,omitempty"`
	CurrentUses     int          `gorm:"not null" json:"current_uses"`
	ValidFrom       time.Time    `gorm:"not null" json:"valid_from"`
	ValidUntil      *time.Time   `json:"valid_until,omitempty"`
	IsActive        bool         `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (PromoCode) TableName() string { return "promo_codes" }

// Usable reports whether the code may be applied at now.
func (p PromoCode) Usable(now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	if now.Before(p.ValidFrom) {
		return ErrNotYetValid
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return ErrExpired
	}
	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return ErrExhausted
	}
	return nil
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, promo *PromoCode) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*PromoCode, error)
	// IncrementUses bumps current_uses unless max_uses is reached. It
	// reports whether a row was updated.
	IncrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}

var (
	ErrNotFound    = errors.New("promo_not_found")
	ErrInactive    = errors.New("promo_inactive")
	ErrNotYetValid = errors.New("promo_not_yet_valid")
	ErrExpired     = errors.New("promo_expired")
	ErrExhausted   = errors.New("promo_exhausted")
)
