package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPromoCodeUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)
	maxUses := 2

	base := PromoCode{IsActive: true, ValidFrom: now.Add(-time.Hour), ValidUntil: &until, MaxUses: &maxUses}
	assert.NoError(t, base.Usable(now))

	inactive := base
	inactive.IsActive = false
	assert.ErrorIs(t, inactive.Usable(now), ErrInactive)

	future := base
	future.ValidFrom = now.Add(time.Hour)
	assert.ErrorIs(t, future.Usable(now), ErrNotYetValid)

	expired := base
	expired.ValidUntil = &past
	assert.ErrorIs(t, expired.Usable(now), ErrExpired)

	exhausted := base
	exhausted.CurrentUses = 2
	assert.ErrorIs(t, exhausted.Usable(now), ErrExhausted)
}
