package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/time-sale/internal/port"
)

const lockRetryInterval = 25 * time.Millisecond

// releaseLockScript deletes the lock only if the caller still holds it, so
// a release after lease expiry cannot kill someone else's lock.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker is a distributed lock keyed by an arbitrary string. SET NX
// with a TTL gives mutual exclusion plus a self-expiring lease: a holder
// that crashes before releasing blocks others only until the lease runs
// out.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (port.Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			// Coordinator unreachable: a distinct, retryable failure.
			return nil, fmt.Errorf("lock coordinator: %w", err)
		}
		if ok {
			return &redisLock{client: l.client, key: key, token: token}, nil
		}
		if !time.Now().Add(lockRetryInterval).Before(deadline) {
			return nil, port.ErrLockUnavailable
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
