package eventlock

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/venuebook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("event.lock",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// New picks the Redis locker when REDIS_URL is set and the in-process
// keyed mutex otherwise.
func New(p Params) (Locker, error) {
	if p.Config.RedisURL == "" {
		p.Log.Info("event lock using in-process mutex")
		return NewKeyedMutex(), nil
	}

	opts, err := redis.ParseURL(p.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	p.Log.Info("event lock using redis", zap.String("addr", opts.Addr))
	return NewRedisLocker(client, p.Log), nil
}
