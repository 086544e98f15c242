package distributed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// 자신이 획득한 락만 해제/연장하도록 토큰을 비교한다
var (
	releaseScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)
	extendScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// Lock SET NX 로 획득한 단일 키 락
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Locker 키 단위 분산 락. 세션 상태 변경처럼 여러 인스턴스가 같은 키를
// 읽고-쓰는 구간을 직렬화할 때 사용한다.
type Locker struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	maxRetries    int
	retryInterval time.Duration
}

func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{
		client:        client,
		prefix:        prefix,
		ttl:           5 * time.Second,
		maxRetries:    20,
		retryInterval: 25 * time.Millisecond,
	}
}

// Acquire 한 번만 시도
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	key := l.prefix + name
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// AcquireWithRetry retryInterval 간격으로 maxRetries 번까지 시도
func (l *Locker) AcquireWithRetry(ctx context.Context, name string) (*Lock, error) {
	for i := 0; i < l.maxRetries; i++ {
		lock, err := l.Acquire(ctx, name)
		if !errors.Is(err, ErrLockNotAcquired) {
			return lock, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
	return nil, ErrLockNotAcquired
}

// WithLock 락을 잡은 채로 fn 실행
func (l *Locker) WithLock(ctx context.Context, name string, fn func() error) error {
	lock, err := l.AcquireWithRetry(ctx, name)
	if err != nil {
		return err
	}
	defer lock.Release(context.Background())

	return fn()
}

// Release 락 해제. 이미 만료되었거나 다른 소유자면 ErrLockNotHeld.
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend 락 TTL 연장
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
