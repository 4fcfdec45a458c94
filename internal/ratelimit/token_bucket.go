package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeTokenScript refills the bucket from redis server time and takes one
// token. It replies {allowed, tokens left, refill timestamp in ms}.
const takeTokenScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

tokens = math.min(burst, tokens + (math.max(0, now - ts) / 1000) * rate)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tokens, now}
`

// evalFunc runs the bucket script against KEYS and ARGV.
type evalFunc func(ctx context.Context, keys []string, args ...any) ([]any, error)

// TokenBucket is a redis-backed bucket shared by every replica. One bucket
// exists per key; all keys share rate and burst.
type TokenBucket struct {
	eval  evalFunc
	rate  float64
	burst int
	ttl   time.Duration
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter, rate float64, burst int) (*TokenBucket, error) {
	if client == nil {
		return nil, errors.New("token bucket: redis client is nil")
	}
	script := redis.NewScript(takeTokenScript)
	return newTokenBucket(func(ctx context.Context, keys []string, args ...any) ([]any, error) {
		return script.Run(ctx, client, keys, args...).Slice()
	}, rate, burst)
}

func newTokenBucket(eval evalFunc, rate float64, burst int) (*TokenBucket, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("token bucket: rate must be positive, got %v", rate)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("token bucket: burst must be positive, got %d", burst)
	}
	return &TokenBucket{eval: eval, rate: rate, burst: burst, ttl: defaultBucketTTL(rate, burst)}, nil
}

// Take removes one token from the bucket of key.
func (b *TokenBucket) Take(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("token bucket: empty key")
	}
	reply, err := b.eval(ctx, []string{key}, b.rate, b.burst, b.ttl.Milliseconds())
	if err != nil {
		return nil, err
	}
	return b.result(reply)
}

func (b *TokenBucket) result(reply []any) (*RateLimitResult, error) {
	if len(reply) != 3 {
		return nil, fmt.Errorf("token bucket: unexpected reply of %d values", len(reply))
	}

	// redis truncates lua numbers to integers
	allowed := castToInt(reply[0]) == 1
	remaining := castToInt(reply[1])
	refilledAt := time.UnixMilli(castToInt(reply[2]))

	var retryAfter time.Duration
	if !allowed {
		missing := 1 - float64(remaining)
		retryAfter = time.Duration(missing / b.rate * float64(time.Second))
	}
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      b.burst,
		Remaining:  int(remaining),
		ResetTime:  refilledAt.Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

// defaultBucketTTL keeps an idle bucket for twice its full refill time.
func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func castToInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
