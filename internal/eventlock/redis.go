package eventlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyEventLock = "venuebook:event:lock:%s"

	defaultLockTTL      = 15 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker is a Locker shared by every process pointed at the same Redis.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	log    *zap.Logger

	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client:       client,
		script:       redis.NewScript(lockReleaseScript),
		log:          log.Named("eventlock.redis"),
		ttl:          defaultLockTTL,
		pollInterval: defaultPollInterval,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, eventID snowflake.ID) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	key := fmt.Sprintf(keyEventLock, eventID.String())

	for {
		token, ok, err := l.tryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrLockTimeout
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) tryLock(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// release runs on a fresh context so a cancelled caller still frees the key.
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.script.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn("event lock release failed", zap.String("key", key), zap.Error(err))
	}
}
