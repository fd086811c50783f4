package cooldown

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "sensoralert:cooldown:"

// RedisManager arms cooldowns in Redis with a TTL equal to the wait window,
// so entries expire on their own and survive process restarts. SET NX is the
// compare-and-set.
type RedisManager struct {
	client *redis.Client
	window time.Duration
}

// NewRedisManager constructs a Redis-backed manager.
func NewRedisManager(client *redis.Client, window time.Duration) (*RedisManager, error) {
	if client == nil {
		return nil, errors.New("cooldown: nil redis client")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisManager{client: client, window: window}, nil
}

// Acquire implements Manager.
func (m *RedisManager) Acquire(ctx context.Context, sensorID, direction string, now time.Time) (bool, error) {
	if m == nil || m.client == nil {
		return false, errors.New("cooldown: nil redis client")
	}
	ok, err := m.client.SetNX(ctx, redisKeyPrefix+key(sensorID, direction), now.UTC().Format(time.RFC3339Nano), m.window).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release implements Manager.
func (m *RedisManager) Release(ctx context.Context, sensorID, direction string) error {
	if m == nil || m.client == nil {
		return errors.New("cooldown: nil redis client")
	}
	return m.client.Del(ctx, redisKeyPrefix+key(sensorID, direction)).Err()
}
