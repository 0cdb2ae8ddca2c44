package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/outbox/domain"
	"github.com/smallbiznis/venuebook/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var truncate = db.TruncateError

const effectColumns = `id, booking_id, effect, template_id, recipient_type, recipient_id,
	status, attempts, last_error, payload, created_at, processed_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type idRow struct {
	ID snowflake.ID
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, effect *domain.Effect) error {
	payload := effect.Payload
	if payload == nil {
		payload = datatypes.JSONMap{}
	}
	status := effect.Status
	if status == "" {
		status = domain.StatusPending
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_effects (`+effectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		effect.ID,
		effect.BookingID,
		effect.Effect,
		effect.TemplateID,
		effect.RecipientType,
		effect.RecipientID,
		status,
		effect.Attempts,
		effect.LastError,
		payload,
		effect.CreatedAt.UTC(),
		effect.ProcessedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Effect, error) {
	var effect domain.Effect
	err := db.WithContext(ctx).Raw(
		`SELECT `+effectColumns+` FROM booking_effects WHERE id = ?`,
		id,
	).Scan(&effect).Error
	if err != nil {
		return nil, err
	}
	if effect.ID == 0 {
		return nil, nil
	}
	return &effect, nil
}

func (r *repo) MarkDone(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE booking_effects
		 SET status = ?, attempts = attempts + 1, last_error = NULL, processed_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusDone,
		now.UTC(),
		id,
		domain.StatusPending,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repo) MarkAttemptFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errMsg string, now time.Time) error {
	errMsg = truncate(errMsg)
	return db.WithContext(ctx).Exec(
		`UPDATE booking_effects
		 SET attempts = attempts + 1,
			 last_error = ?,
			 status = CASE WHEN attempts + 1 >= ? THEN ? ELSE status END,
			 processed_at = CASE WHEN attempts + 1 >= ? THEN ? ELSE processed_at END
		 WHERE id = ? AND status = ?`,
		errMsg,
		domain.MaxAttempts,
		domain.StatusFailed,
		domain.MaxAttempts,
		now.UTC(),
		id,
		domain.StatusPending,
	).Error
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, createdBefore time.Time, limit int) ([]snowflake.ID, error) {
	var rows []idRow
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM booking_effects
		 WHERE status = ? AND created_at <= ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusPending,
		createdBefore.UTC(),
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
