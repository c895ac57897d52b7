package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript counts one use in a fixed window. Uses beyond the rate are not
// counted and the remaining window in milliseconds is returned instead.
var takeScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if n > tonumber(ARGV[2]) then
	redis.call("DECR", KEYS[1])
	return redis.call("PTTL", KEYS[1])
end
return 0
`)

func (r *RedisStorage) TakeCooldown(ctx context.Context, key string, rate int, per time.Duration) (time.Duration, error) {
	wait, err := takeScript.Run(ctx, r.client, []string{cooldownPrefix + key}, per.Milliseconds(), rate).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to take cooldown %s: %w", key, err)
	}
	if wait < 0 {
		return 0, nil
	}
	return time.Duration(wait) * time.Millisecond, nil
}

func (r *RedisStorage) ResetCooldown(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, cooldownPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset cooldown %s: %w", key, err)
	}
	return nil
}
