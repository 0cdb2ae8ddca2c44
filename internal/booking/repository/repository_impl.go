package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/pkg/db"
	"gorm.io/gorm"
)

const bookingColumns = `id, booking_number, event_id, client_id, guests_count, total_price,
	deposit_amount, status, hold_expires_at, confirmed_at, paid_at, cancelled_at,
	cancellation_reason, refund_amount, refund_reason, promo_code, discount_percent,
	notes, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type idRow struct {
	ID snowflake.ID
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, booking *domain.Booking) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.BookingNumber,
		booking.EventID,
		booking.ClientID,
		booking.GuestsCount,
		booking.TotalPrice,
		booking.DepositAmount,
		booking.Status,
		utcPtr(booking.HoldExpiresAt),
		utcPtr(booking.ConfirmedAt),
		utcPtr(booking.PaidAt),
		utcPtr(booking.CancelledAt),
		booking.CancellationReason,
		booking.RefundAmount,
		booking.RefundReason,
		booking.PromoCode,
		booking.DiscountPercent,
		booking.Notes,
		booking.CreatedAt.UTC(),
		booking.UpdatedAt.UTC(),
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := conn.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) FindByNumber(ctx context.Context, conn *gorm.DB, number string) (*domain.Booking, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, nil
	}
	var booking domain.Booking
	err := conn.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_number = ?`,
		number,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1 = 1`
	args := make([]any, 0, 6)

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.EventID != 0 {
		query += ` AND event_id = ?`
		args = append(args, filter.EventID)
	}
	if filter.ClientID != 0 {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	if filter.Cursor != nil {
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, filter.Cursor.CreatedAt.UTC(), filter.Cursor.CreatedAt.UTC(), filter.Cursor.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var bookings []*domain.Booking
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repo) ApplyTransition(ctx context.Context, conn *gorm.DB, update domain.FieldUpdate) (int64, error) {
	b := update.Booking
	result := conn.WithContext(ctx).Exec(
		`UPDATE bookings SET
			status = ?,
			booking_number = ?,
			hold_expires_at = ?,
			confirmed_at = ?,
			paid_at = ?,
			cancelled_at = ?,
			cancellation_reason = ?,
			refund_amount = ?,
			refund_reason = ?,
			updated_at = ?
		 WHERE id = ? AND status = ?`,
		update.ToStatus,
		b.BookingNumber,
		utcPtr(b.HoldExpiresAt),
		utcPtr(b.ConfirmedAt),
		utcPtr(b.PaidAt),
		utcPtr(b.CancelledAt),
		b.CancellationReason,
		b.RefundAmount,
		b.RefundReason,
		update.UpdatedAt.UTC(),
		update.ID,
		update.FromStatus,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) SumActiveGuests(ctx context.Context, conn *gorm.DB, eventID, excludeID snowflake.ID) (int, error) {
	var total int
	err := conn.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(guests_count), 0) FROM bookings
		 WHERE event_id = ? AND id <> ? AND status IN ?`,
		eventID,
		excludeID,
		domain.ActiveStatuses,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// NextBookingNumber must run inside the transition transaction; the
// increment-then-read pair relies on the row lock taken by the UPDATE.
func (r *repo) NextBookingNumber(ctx context.Context, conn *gorm.DB, year int, now time.Time) (int64, error) {
	for attempt := 0; attempt < 2; attempt++ {
		result := conn.WithContext(ctx).Exec(
			`UPDATE booking_number_sequences
			 SET next_number = next_number + 1, updated_at = ?
			 WHERE year = ?`,
			now.UTC(),
			year,
		)
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 1 {
			var next int64
			err := conn.WithContext(ctx).Raw(
				`SELECT next_number FROM booking_number_sequences WHERE year = ?`,
				year,
			).Scan(&next).Error
			if err != nil {
				return 0, err
			}
			return next - 1, nil
		}

		err := conn.WithContext(ctx).Exec(
			`INSERT INTO booking_number_sequences (year, next_number, updated_at)
			 VALUES (?, ?, ?)`,
			year,
			2,
			now.UTC(),
		).Error
		if err == nil {
			return 1, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return 0, err
		}
	}
	return 0, gorm.ErrDuplicatedKey
}

func (r *repo) ListExpiredHolds(ctx context.Context, conn *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	var rows []idRow
	err := conn.WithContext(ctx).Raw(
		`SELECT id FROM bookings
		 WHERE status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?
		 ORDER BY hold_expires_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusHold,
		now.UTC(),
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return collectIDs(rows), nil
}

func (r *repo) ListFinishedEventBookings(ctx context.Context, conn *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	var rows []idRow
	err := conn.WithContext(ctx).Raw(
		`SELECT b.id FROM bookings b
		 JOIN events e ON e.id = b.event_id
		 WHERE b.status IN ? AND e.date_end <= ?
		 ORDER BY e.date_end ASC, b.id ASC
		 LIMIT ?`,
		[]domain.BookingStatus{domain.StatusConfirmed, domain.StatusPaid},
		now.UTC(),
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return collectIDs(rows), nil
}

func (r *repo) ListUpcoming(ctx context.Context, conn *gorm.DB, from, to time.Time) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := conn.WithContext(ctx).Raw(
		`SELECT b.id, b.booking_number, b.event_id, b.client_id, b.guests_count, b.total_price,
			b.deposit_amount, b.status, b.hold_expires_at, b.confirmed_at, b.paid_at, b.cancelled_at,
			b.cancellation_reason, b.refund_amount, b.refund_reason, b.promo_code, b.discount_percent,
			b.notes, b.created_at, b.updated_at
		 FROM bookings b
		 JOIN events e ON e.id = b.event_id
		 WHERE b.status IN ? AND e.date_start > ? AND e.date_start <= ?
		 ORDER BY e.date_start ASC, b.id ASC`,
		[]domain.BookingStatus{domain.StatusConfirmed, domain.StatusPaid},
		from.UTC(),
		to.UTC(),
	).Scan(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func collectIDs(rows []idRow) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
