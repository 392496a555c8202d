package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"regulus/internal/policy/models"
)

// rollingCounterScript performs roll, check and increment in one step.
// KEYS[1] = counter key
// ARGV[1] = limit (0 = unlimited)
// ARGV[2] = window in milliseconds
// ARGV[3] = now in unix milliseconds
// ARGV[4] = "1" to consume, "0" to peek
var rollingCounterScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "count", "from")
local count = tonumber(state[1])
local from = tonumber(state[2])

if not count or not from then
    count = 0
    from = now
end

if now - from >= window then
    count = 0
    from = now
end

local allowed = 1
if limit > 0 and count >= limit then
    allowed = 0
end

if ARGV[4] == "1" then
    if allowed == 1 then
        count = count + 1
    end
    redis.call("HSET", key, "count", count, "from", from)
    redis.call("PEXPIRE", key, window * 2)
end

return {allowed, count, from}
`)

// RedisCounterStore shares counters across gateway replicas.
type RedisCounterStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.CounterResult, error) {
	return s.run(ctx, key, limit, window, now, true)
}

func (s *RedisCounterStore) Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.CounterResult, error) {
	return s.run(ctx, key, limit, window, now, false)
}

func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset counter: %w", err)
	}
	return nil
}

func (s *RedisCounterStore) run(ctx context.Context, key string, limit int, window time.Duration, now time.Time, consume bool) (*models.CounterResult, error) {
	mode := "0"
	if consume {
		mode = "1"
	}
	res, err := rollingCounterScript.Run(ctx, s.client, []string{key},
		limit, window.Milliseconds(), now.UnixMilli(), mode).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis counter error: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("invalid response from counter script")
	}
	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	fromMillis, _ := res[2].(int64)

	from := time.UnixMilli(fromMillis).UTC()
	return &models.CounterResult{
		Allowed:    allowed == 1,
		Count:      int(count),
		Limit:      limit,
		WindowFrom: from,
		ResetAt:    from.Add(window),
	}, nil
}
