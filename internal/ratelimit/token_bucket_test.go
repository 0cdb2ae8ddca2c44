package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/venuebook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultAllowed(t *testing.T) {
	res, err := parseResult([]any{int64(1), "3.5", int64(1_700_000_000_000)}, 0.5, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)
}

func TestParseResultDeniedComputesRetryAfter(t *testing.T) {
	res, err := parseResult([]any{int64(0), "0.5", int64(1_700_000_000_000)}, 0.5, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_700_000_001_000), res.ResetTime)
}

func TestParseResultRejectsShortReply(t *testing.T) {
	_, err := parseResult([]any{int64(1)}, 1, 1)
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(0.5, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}

func TestNilLimiterAllows(t *testing.T) {
	var l *BookingLimiter
	assert.False(t, l.Enabled())

	res, err := l.AllowBooking(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewBookingLimiterConvertsPerMinute(t *testing.T) {
	l := NewBookingLimiter(nil, config.RateLimitConfig{PerMinute: 30, Burst: 4})
	assert.Equal(t, 0.5, l.rate)
	assert.Equal(t, 4, l.burst)
	assert.False(t, l.Enabled())
}
