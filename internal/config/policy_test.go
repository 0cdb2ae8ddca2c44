package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBookingPolicyRetryDelay(t *testing.T) {
	p := DefaultBookingPolicy()

	assert.Equal(t, 30*time.Second, p.RetryDelay(1))
	assert.Equal(t, 2*time.Minute, p.RetryDelay(2))
	assert.Equal(t, 10*time.Minute, p.RetryDelay(3))
	assert.Equal(t, 10*time.Minute, p.RetryDelay(7), "last delay is reused")
	assert.Equal(t, 30*time.Second, p.RetryDelay(0))
}

func TestBookingPolicyHoldDuration(t *testing.T) {
	p := DefaultBookingPolicy()
	assert.Equal(t, 30*time.Minute, p.HoldDuration())
}

func TestValidateBookingPolicy(t *testing.T) {
	assert.NoError(t, validateBookingPolicy(DefaultBookingPolicy()))

	p := DefaultBookingPolicy()
	p.RetryDelays = nil
	assert.Error(t, validateBookingPolicy(p))

	p = DefaultBookingPolicy()
	p.MaxAttempts = 0
	assert.Error(t, validateBookingPolicy(p))

	p = DefaultBookingPolicy()
	p.DefaultDepositPercent = 120
	assert.Error(t, validateBookingPolicy(p))
}

func TestPolicyHolderNilFallsBackToDefaults(t *testing.T) {
	var h *PolicyHolder
	assert.Equal(t, DefaultBookingPolicy(), h.Get())
}

func TestPolicyHolderReadsEnvOverrides(t *testing.T) {
	t.Setenv("BOOKING_HOLD_DURATION_MINUTES", "45")
	t.Setenv("BOOKING_MAX_ATTEMPTS", "5")

	h, err := NewPolicyHolder(zap.NewNop())
	require.NoError(t, err)

	p := h.Get()
	assert.Equal(t, 45, p.HoldDurationMinutes)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, DefaultBookingPolicy().RetryDelays, p.RetryDelays)
	assert.Equal(t, DefaultBookingPolicy().DefaultDepositPercent, p.DefaultDepositPercent)
}

func TestPolicyHolderRejectsInvalidEnv(t *testing.T) {
	t.Setenv("BOOKING_HOLD_DURATION_MINUTES", "0")

	_, err := NewPolicyHolder(zap.NewNop())
	assert.Error(t, err)
}
