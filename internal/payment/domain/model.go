package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "DEPOSIT"
	PaymentTypeFull    PaymentType = "FULL"
	PaymentTypePartial PaymentType = "PARTIAL"
	PaymentTypeRefund  PaymentType = "REFUND"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

const (
	MethodLiqPay = "LIQPAY"
	MethodCash   = "CASH"
	MethodManual = "MANUAL"
)

// Payment is one money movement against a booking. Amount is in minor units.
type Payment struct {
	ID                    snowflake.ID      `gorm:"primaryKey" json:"id"`
	BookingID             snowflake.ID      `gorm:"not null;index" json:"booking_id"`
	Amount                int64             `gorm:"not null" json:"amount"`
	Currency              string            `gorm:"not null" json:"currency"`
	Type                  PaymentType       `gorm:"not null" json:"type"`
	Method                string            `gorm:"not null" json:"method"`
	Status                PaymentStatus     `gorm:"not null" json:"status"`
	ProviderTransactionID *string           `json:"provider_transaction_id,omitempty"`
	ProviderData          datatypes.JSONMap `json:"provider_data,omitempty"`
	CreatedAt             time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Counts reports whether the payment contributes to the amount paid.
func (p Payment) Counts() bool {
	return p.Status == PaymentStatusSuccess && p.Type != PaymentTypeRefund
}

// TotalPaid sums successful non-refund payments.
func TotalPaid(payments []Payment) int64 {
	var total int64
	for _, p := range payments {
		if p.Counts() {
			total += p.Amount
		}
	}
	return total
}

// HasVerified reports whether at least one payment counts toward the total.
func HasVerified(payments []Payment) bool {
	for _, p := range payments {
		if p.Counts() {
			return true
		}
	}
	return false
}
