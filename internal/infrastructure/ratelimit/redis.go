package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "rl:login"

// admitLua implements the fixed window in one round trip.
// KEYS[1] = counter key
// ARGV[1] = max requests
// ARGV[2] = window (ms)
// Returns 1 when admitted, 0 when denied.
var admitLua = redis.NewScript(`
local max = tonumber(ARGV[1])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= max then
  return 0
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// Redis is a fixed-window counter shared by every instance pointing at the
// same Redis. The window starts at the first request and Redis expires it.
type Redis struct {
	client redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

func NewRedis(client redis.UniversalClient, max int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: defaultKeyPrefix,
		max:    max,
		window: window,
	}
}

func (l *Redis) Admit(ctx context.Context, key string) (bool, error) {
	n, err := admitLua.Run(ctx, l.client, []string{l.prefix + ":" + key}, l.max, l.window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return n == 1, nil
}
