package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript applies one hit atomically.
// KEYS[1] = counter key
// ARGV[1] = limit
// ARGV[2] = window in milliseconds
// Returns: {allowed (0/1), count, ttl_ms}
var fixedWindowScript = redis.NewScript(`
local count = redis.call('GET', KEYS[1])
local window = tonumber(ARGV[2])
if not count then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end

count = tonumber(count)
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end

if count >= tonumber(ARGV[1]) then
  return {0, count, ttl}
end

count = redis.call('INCR', KEYS[1])
return {1, count, ttl}
`)

// RedisStore shares counters between gateway instances. Keys expire with
// their window, so no sweep is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix + "rl:",
	}
}

func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration) (Entry, bool, error) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{s.prefix + key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Entry{}, false, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Entry{}, false, fmt.Errorf("rate limit script: unexpected reply length %d", len(res))
	}

	entry := Entry{
		Count:   int(res[1]),
		ResetAt: time.Now().Add(time.Duration(res[2]) * time.Millisecond),
	}
	return entry, res[0] == 1, nil
}
