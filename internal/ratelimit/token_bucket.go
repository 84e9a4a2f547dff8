package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Refills by elapsed server time, takes one token when available and
// returns {allowed, tokens, now_ms}. Tokens come back as a string so the
// fractional part survives the Lua to RESP conversion.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now

local elapsed = math.max(0, now - last)
tokens = math.min(burst, tokens + elapsed / 1000 * rate)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

var (
	ErrNotConfigured = errors.New("rate limiter not configured")
	ErrEmptyKey      = errors.New("rate limiter key is empty")
	ErrInvalidLimit  = errors.New("rate limiter rate and burst must be positive")
)

// TokenBucket is a Redis backed token bucket evaluated atomically in Lua.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client, script: redis.NewScript(tokenBucketScript)}
}

// Allow takes one token from the bucket stored at key. The bucket holds at
// most burst tokens and refills at rate tokens per second.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	denied := &RateLimitResult{Limit: burst}
	switch {
	case t == nil || t.client == nil:
		return denied, ErrNotConfigured
	case key == "":
		return denied, ErrEmptyKey
	case rate <= 0 || burst <= 0:
		return denied, ErrInvalidLimit
	}

	ttl := bucketTTL(rate, burst)
	reply, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Slice()
	if err != nil {
		return denied, err
	}
	if len(reply) != 3 {
		return denied, fmt.Errorf("rate limit script returned %d values", len(reply))
	}

	allowed := scriptNumber(reply[0]) == 1
	remaining := scriptNumber(reply[1])
	now := int64(scriptNumber(reply[2]))
	return bucketResult(allowed, remaining, now, rate, burst), nil
}

func bucketResult(allowed bool, remaining float64, nowMillis int64, rate float64, burst int) *RateLimitResult {
	var retryAfter time.Duration
	if !allowed && remaining < 1 {
		retryAfter = time.Duration((1 - remaining) / rate * float64(time.Second))
	}
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  int(math.Floor(remaining)),
		ResetTime:  time.UnixMilli(nowMillis).Add(retryAfter),
		RetryAfter: retryAfter,
	}
}

// bucketTTL keeps idle buckets for twice the time a full refill takes.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

// scriptNumber reads an integer or string reply element as a float.
func scriptNumber(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
