package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/venuebook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyBookingCreate = "venuebook:ratelimit:booking:%s"

// BookingLimiter throttles public booking creation per client address.
type BookingLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// New returns nil when Redis or a positive limit is not configured; a nil
// limiter allows everything.
func New(p Params) (*BookingLimiter, error) {
	limit := p.Config.BookingRateLimit
	if p.Config.RedisURL == "" || limit.PerMinute <= 0 || limit.Burst <= 0 {
		p.Log.Info("booking rate limit disabled")
		return nil, nil
	}

	opts, err := redis.ParseURL(p.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	p.Log.Info("booking rate limit enabled",
		zap.Float64("per_minute", limit.PerMinute),
		zap.Int("burst", limit.Burst),
	)
	return NewBookingLimiter(client, limit), nil
}

func NewBookingLimiter(client redis.Scripter, limit config.RateLimitConfig) *BookingLimiter {
	return &BookingLimiter{
		bucket: NewTokenBucket(client),
		rate:   limit.PerMinute / 60,
		burst:  limit.Burst,
	}
}

func (l *BookingLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *BookingLimiter) AllowBooking(ctx context.Context, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyBookingCreate, strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
