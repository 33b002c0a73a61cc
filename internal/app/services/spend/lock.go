package spend

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker serialises sync attempts per account so two dashboard loads cannot
// both hit the ads platform for the same user.
type Locker interface {
	// TryLock acquires the lock without blocking; false means another sync
	// for the key is already in flight.
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// memoryLocker guards syncs within a single process.
type memoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker creates an in-process locker. Sufficient for a single
// instance; use the redis locker when running more than one.
func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[string]bool)}
}

func (l *memoryLocker) TryLock(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memoryLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// RedisLocker implements the lock as a short-lived lease row so concurrent
// instances agree. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by the given redis client. ttl <= 0
// selects a 5 minute lease.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl}
}

var _ Locker = (*RedisLocker)(nil)

func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, l.redisKey(key), "1", l.ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.redisKey(key)).Err()
}

func (l *RedisLocker) redisKey(key string) string {
	return "lead-ledger:spend-sync:" + key
}
