package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/venuebook/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const paymentColumns = `id, booking_id, amount, currency, type, method, status,
	provider_transaction_id, provider_data, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	data := payment.ProviderData
	if data == nil {
		data = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.BookingID,
		payment.Amount,
		payment.Currency,
		payment.Type,
		payment.Method,
		payment.Status,
		payment.ProviderTransactionID,
		data,
		payment.CreatedAt.UTC(),
		payment.UpdatedAt.UTC(),
	).Error
}

func (r *repo) ListByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE booking_id = ?
		 ORDER BY created_at ASC, id ASC`,
		bookingID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) FindLatestPending(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE booking_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		bookingID,
		domain.PaymentStatusPending,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) MarkResult(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.PaymentStatus, transactionID string, data datatypes.JSONMap, now time.Time) (bool, error) {
	var txID *string
	if trimmed := strings.TrimSpace(transactionID); trimmed != "" {
		txID = &trimmed
	}
	if data == nil {
		data = datatypes.JSONMap{}
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, provider_transaction_id = COALESCE(?, provider_transaction_id),
		     provider_data = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		txID,
		data,
		now.UTC(),
		id,
		domain.PaymentStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SumSuccessful(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments
		 WHERE booking_id = ? AND status = ? AND type <> ?`,
		bookingID,
		domain.PaymentStatusSuccess,
		domain.PaymentTypeRefund,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
