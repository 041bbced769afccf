package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store as a fixed-window TTL counter shared across
// service instances. The counter key expires with the window, so Redis
// handles cleanup on its own.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// recordScript atomically increments the window counter only when it is
// below the limit, setting the TTL on first increment.
var recordScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
    return {0, current, redis.call('PTTL', KEYS[1])}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, current, redis.call('PTTL', KEYS[1])}
`)

// NewRedisStore creates a Redis-backed store. Keys are namespaced with
// prefix (default "ratelimit").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, keyPrefix: prefix}
}

func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	res, err := recordScript.Run(ctx, s.client, []string{s.key(key)}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, err
	}

	allowed := res[0] == 1
	count := int(res[1])

	ttl := time.Duration(res[2]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return allowed, count, time.Now().Add(ttl), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) key(key string) string {
	return s.keyPrefix + ":" + key
}
