package synclock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// releaseScript deletes the key only while it still holds our owner token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only while the key still holds our owner token
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker creates a Redis backed locker
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// NewRedisClient connects to the Redis instance at redisURL
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	options.MaxRetries = 5
	options.MinRetryBackoff = 8 * time.Millisecond
	options.MaxRetryBackoff = 512 * time.Millisecond
	options.DialTimeout = 5 * time.Second

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Acquire takes the lock unless the key already exists
func (l *RedisLocker) Acquire(ctx context.Context, userID string, provider domain.Provider) (*Lease, error) {
	key := lockKey(userID, provider)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}

	return &Lease{
		UserID:   userID,
		Provider: provider,
		Owner:    owner,
		release: func(ctx context.Context) error {
			if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil {
				return fmt.Errorf("failed to release sync lock: %w", err)
			}
			return nil
		},
		extend: func(ctx context.Context) error {
			n, err := extendScript.Run(ctx, l.client, []string{key}, owner, l.ttl.Milliseconds()).Int()
			if err != nil {
				return fmt.Errorf("failed to extend sync lock: %w", err)
			}
			if n == 0 {
				return domain.ErrSyncInProgress
			}
			return nil
		},
	}, nil
}
