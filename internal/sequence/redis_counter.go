package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "seq:"

var ensureAtLeastScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
	redis.call('SET', KEYS[1], floor)
	return floor
end
return cur
`)

// RedisCounter issues sequences with INCR. Losing the Redis data only costs
// a unique-conflict retry: callers resync from storage via EnsureAtLeast.
type RedisCounter struct {
	rdb redis.UniversalClient
}

func NewRedisCounter(rdb redis.UniversalClient) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Next(ctx context.Context, scope string) (int64, error) {
	v, err := c.rdb.Incr(ctx, redisKeyPrefix+scope).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", scope, err)
	}
	return v, nil
}

func (c *RedisCounter) EnsureAtLeast(ctx context.Context, scope string, floor int64) error {
	if floor <= 0 {
		return nil
	}
	if err := ensureAtLeastScript.Run(ctx, c.rdb, []string{redisKeyPrefix + scope}, floor).Err(); err != nil {
		return fmt.Errorf("redis raise %s: %w", scope, err)
	}
	return nil
}
