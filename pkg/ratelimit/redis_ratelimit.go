package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokens 와 마지막 리필 시각(ms)을 하나의 해시에 저장한다
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_ms = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local state = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(state[1])
	local last = tonumber(state[2])

	-- 첫 요청
	if tokens == nil then
		tokens = capacity
		last = now
	end

	local elapsed = math.max(0, now - last)
	tokens = math.min(capacity, tokens + elapsed / refill_ms)

	local allowed = 0
	local retry_ms = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_ms = math.ceil((1 - tokens) * refill_ms)
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', tostring(now))
	redis.call('PEXPIRE', key, math.ceil(capacity * refill_ms * 2))

	return {allowed, math.floor(tokens), retry_ms}
`)

// RedisRateLimiter Redis 기반 분산 Rate Limiter (Token Bucket 알고리즘).
// 여러 인스턴스가 같은 키 공간을 공유한다.
type RedisRateLimiter struct {
	client      *redis.Client
	keyPrefix   string
	capacity    int
	refillEvery time.Duration
	now         func() time.Time
}

// NewRedisRateLimiter 공유 Redis 클라이언트로 Rate Limiter 생성
func NewRedisRateLimiter(client *redis.Client, keyPrefix string, capacity int, refillEvery time.Duration) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisRateLimiter{
		client:      client,
		keyPrefix:   keyPrefix,
		capacity:    capacity,
		refillEvery: refillEvery,
		now:         time.Now,
	}
}

// Allow 토큰 하나 소비 시도
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := tokenBucketScript.Run(ctx, r.client, []string{r.keyPrefix + key},
		r.capacity,
		r.refillEvery.Milliseconds(),
		r.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis script execution failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("invalid script result")
	}

	return Decision{
		Allowed:    res[0] == 1,
		Limit:      r.capacity,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Reset 특정 키의 Rate Limit 초기화
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
