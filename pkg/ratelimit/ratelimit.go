package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision 한 번의 Allow 결과
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter 키 단위 요청 제한
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// TokenBucket implements the token bucket algorithm for rate limiting.
// One token is added every refillEvery, up to capacity.
type TokenBucket struct {
	mu          sync.Mutex
	capacity    float64
	tokens      float64
	refillEvery time.Duration
	lastRefill  time.Time
	lastUsed    time.Time
	now         func() time.Time
}

// NewTokenBucket creates a full token bucket
func NewTokenBucket(capacity int, refillEvery time.Duration, now func() time.Time) *TokenBucket {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &TokenBucket{
		capacity:    float64(capacity),
		tokens:      float64(capacity),
		refillEvery: refillEvery,
		lastRefill:  t,
		lastUsed:    t,
		now:         now,
	}
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() Decision {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	tb.lastUsed = tb.now()

	d := Decision{Limit: int(tb.capacity)}
	if tb.tokens >= 1 {
		tb.tokens--
		d.Allowed = true
	} else {
		d.RetryAfter = time.Duration((1 - tb.tokens) * float64(tb.refillEvery))
	}
	d.Remaining = int(tb.tokens)
	return d
}

// refill adds fractional tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}
	tb.tokens = min(tb.capacity, tb.tokens+elapsed.Seconds()/tb.refillEvery.Seconds())
	tb.lastRefill = now
}

// idleSince reports whether the bucket is full and unused since cutoff
func (tb *TokenBucket) idleSince(cutoff time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens >= tb.capacity && tb.lastUsed.Before(cutoff)
}

// RateLimiter manages in-process token buckets for multiple keys
type RateLimiter struct {
	mu              sync.RWMutex
	buckets         map[string]*TokenBucket
	capacity        int
	refillEvery     time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop
func NewRateLimiter(capacity int, refillEvery time.Duration) *RateLimiter {
	rl := newRateLimiter(capacity, refillEvery, time.Now)
	go rl.cleanupLoop()
	return rl
}

func newRateLimiter(capacity int, refillEvery time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		buckets:         make(map[string]*TokenBucket),
		capacity:        capacity,
		refillEvery:     refillEvery,
		cleanupInterval: 10 * time.Minute,
		now:             now,
		stopChan:        make(chan struct{}),
	}
}

// Allow checks if a request from the given key is allowed
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	return rl.getBucket(key).Allow(), nil
}

// getBucket gets or creates a token bucket for the given key
func (rl *RateLimiter) getBucket(key string) *TokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists = rl.buckets[key]; exists {
		return bucket
	}

	bucket = NewTokenBucket(rl.capacity, rl.refillEvery, rl.now)
	rl.buckets[key] = bucket
	return bucket
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopChan:
			return
		}
	}
}

// cleanup removes buckets that are full and unused for a cleanup interval
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.cleanupInterval)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, bucket := range rl.buckets {
		if bucket.idleSince(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Len active bucket count
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.buckets)
}
