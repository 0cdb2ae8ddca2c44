package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/promo/domain"
	"gorm.io/gorm"
)

const promoColumns = `id, code, discount_percent, max_uses, current_uses, valid_from, valid_until, is_active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, promo *domain.PromoCode) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO promo_codes (`+promoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		promo.ID,
		strings.ToUpper(strings.TrimSpace(promo.Code)),
		promo.DiscountPercent,
		promo.MaxUses,
		promo.CurrentUses,
		promo.ValidFrom.UTC(),
		promo.ValidUntil,
		promo.IsActive,
		promo.CreatedAt.UTC(),
		promo.UpdatedAt.UTC(),
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	err := db.WithContext(ctx).Raw(
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)),
	).Scan(&promo).Error
	if err != nil {
		return nil, err
	}
	if promo.ID == 0 {
		return nil, nil
	}
	return &promo, nil
}

func (r *repo) IncrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE promo_codes
		 SET current_uses = current_uses + 1, updated_at = ?
		 WHERE id = ? AND (max_uses IS NULL OR current_uses < max_uses)`,
		now.UTC(),
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
