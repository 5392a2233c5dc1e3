package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker provides a best-effort mutual exclusion between sweep processes.
// Correctness never depends on it; it only saves duplicate work.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// deletes the key only while it still holds our token, so a lock that
// expired and was taken by another process is left alone
const luaCompareAndDelete = `
-- KEYS[1] = lock key
-- ARGV[1] = owner token
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseScript = redis.NewScript(luaCompareAndDelete)

// RedisLock implements Locker with SET NX PX and a compare-and-delete script
type RedisLock struct {
	client   *redis.Client
	newToken func() string
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{
		client:   client,
		newToken: func() string { return uuid.NewString() },
	}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.client == nil {
		return "", false, fmt.Errorf("redis client not available")
	}

	token := l.newToken()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	if l.client == nil {
		return fmt.Errorf("redis client not available")
	}

	// Run tries EVALSHA first and falls back to EVAL when the script is not cached
	released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if released == 0 {
		return fmt.Errorf("lock %s was no longer owned", key)
	}
	return nil
}

// PreloadScripts loads the release script so the first release skips the EVAL fallback
func (l *RedisLock) PreloadScripts(ctx context.Context) error {
	if l.client == nil {
		return fmt.Errorf("redis client not available")
	}
	if err := releaseScript.Load(ctx, l.client).Err(); err != nil {
		return fmt.Errorf("failed to load lock release script: %w", err)
	}
	return nil
}
