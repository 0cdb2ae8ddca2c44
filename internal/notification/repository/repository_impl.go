package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var truncate = db.TruncateError

const notificationColumns = `id, recipient_type, recipient_id, booking_id, channel, template_id,
	payload, status, retry_count, scheduled_at, sent_at, error, created_at, updated_at`


type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type idRow struct {
	ID snowflake.ID
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	payload := n.Payload
	if payload == nil {
		payload = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.RecipientType,
		n.RecipientID,
		n.BookingID,
		n.Channel,
		n.TemplateID,
		payload,
		n.Status,
		n.RetryCount,
		n.ScheduledAt.UTC(),
		n.SentAt,
		n.Error,
		n.CreatedAt.UTC(),
		n.UpdatedAt.UTC(),
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`,
		id,
	).Scan(&n).Error
	if err != nil {
		return nil, err
	}
	if n.ID == 0 {
		return nil, nil
	}
	return &n, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, sent_at = ?, error = NULL, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.StatusSent,
		now.UTC(),
		now.UTC(),
		id,
		domain.PendingStatuses,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repo) MarkRetry(ctx context.Context, db *gorm.DB, id snowflake.ID, retryCount int, scheduledAt time.Time, errMsg string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, retry_count = ?, scheduled_at = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.StatusRetry,
		retryCount,
		scheduledAt.UTC(),
		truncate(errMsg),
		now.UTC(),
		id,
		domain.PendingStatuses,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, retryCount int, errMsg string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, retry_count = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.StatusFailed,
		retryCount,
		truncate(errMsg),
		now.UTC(),
		id,
		domain.PendingStatuses,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	var rows []idRow
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM notifications
		 WHERE status IN ? AND scheduled_at <= ?
		 ORDER BY scheduled_at ASC, id ASC
		 LIMIT ?`,
		domain.PendingStatuses,
		now.UTC(),
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

func (r *repo) ExistsForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, templateID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM notifications WHERE booking_id = ? AND template_id = ?`,
		bookingID,
		templateID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
