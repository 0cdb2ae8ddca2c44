package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPaid(t *testing.T) {
	payments := []Payment{
		{Amount: 300, Type: PaymentTypeDeposit, Status: PaymentStatusSuccess},
		{Amount: 700, Type: PaymentTypeFull, Status: PaymentStatusSuccess},
		{Amount: 500, Type: PaymentTypeFull, Status: PaymentStatusFailed},
		{Amount: 400, Type: PaymentTypeDeposit, Status: PaymentStatusPending},
		{Amount: 950, Type: PaymentTypeRefund, Status: PaymentStatusSuccess},
	}
	assert.Equal(t, int64(1000), TotalPaid(payments))
	assert.True(t, HasVerified(payments))
	assert.False(t, HasVerified(payments[2:]))
	assert.Zero(t, TotalPaid(nil))
}
