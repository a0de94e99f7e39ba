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

// takeScript refills the bucket from the redis clock, takes one token when
// available and returns {taken, tokens_left}.
const takeScript = `
local rate, burst, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])
local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens, last = tonumber(state[1]), tonumber(state[2])
if tokens == nil then
  tokens = burst
else
  tokens = math.min(burst, tokens + math.max(0, now - last) * rate / 1000)
end

local taken = 0
if tokens >= 1 then
  tokens = tokens - 1
  taken = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {taken, tostring(tokens)}
`

var (
	ErrBucketKeyEmpty = errors.New("rate limiter key is empty")
	ErrLimitInvalid   = errors.New("rate limiter rate and burst must be positive")
)

// Limit is a refill rate in tokens per second and a bucket capacity.
type Limit struct {
	Rate  float64
	Burst int
}

func (l Limit) valid() bool {
	return l.Rate > 0 && l.Burst > 0
}

// ttl keeps an idle bucket around for twice the time it takes to refill.
func (l Limit) ttl() time.Duration {
	if !l.valid() {
		return time.Second
	}
	return time.Duration(math.Max(1, math.Ceil(2*float64(l.Burst)/l.Rate))) * time.Second
}

// wait is how long until one token is back, given what is left in the bucket.
func (l Limit) wait(left float64) time.Duration {
	if l.Rate <= 0 || left >= 1 {
		return 0
	}
	return time.Duration(math.Ceil((1-left)/l.Rate*1000)) * time.Millisecond
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Bucket is a redis-backed token bucket shared by every instance.
type Bucket struct {
	client *redis.Client
	script *redis.Script
}

func NewBucket(client *redis.Client) *Bucket {
	return &Bucket{client: client, script: redis.NewScript(takeScript)}
}

func (b *Bucket) Take(ctx context.Context, key string, limit Limit) (Decision, error) {
	if key == "" {
		return Decision{}, ErrBucketKeyEmpty
	}
	if !limit.valid() {
		return Decision{}, ErrLimitInvalid
	}

	reply, err := b.script.Run(ctx, b.client, []string{key},
		limit.Rate, limit.Burst, limit.ttl().Milliseconds()).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 2 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(reply))
	}

	taken := scriptNumber(reply[0]) == 1
	left := scriptNumber(reply[1])
	d := Decision{Allowed: taken, Remaining: int(left)}
	if !taken {
		d.RetryAfter = limit.wait(left)
	}
	return d, nil
}

// scriptNumber reads a lua reply value: integers arrive as int64, fractional
// values as the strings the script formats them into.
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
	}
	return 0
}
