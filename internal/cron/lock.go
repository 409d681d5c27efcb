package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Lock gives one process at a time the right to run a named job.
type Lock interface {
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock implements Lock using Redis SETNX + TTL, so devices sharing a
// Redis do not all poll at once.
type RedisLock struct {
	client redisStore
	ttl    time.Duration

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, ttl: ttl, owners: map[string]string{}}, nil
}

// Acquire tries to own the named lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context, name string) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.client.LockKey(name), owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owners[name] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	owner := l.owners[name]
	l.mu.Unlock()
	if owner == "" {
		return nil
	}

	key := l.client.LockKey(name)
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.forget(name)
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		l.forget(name)
		return nil
	}
	if err := l.client.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.forget(name)
	return nil
}

func (l *RedisLock) forget(name string) {
	l.mu.Lock()
	delete(l.owners, name)
	l.mu.Unlock()
}

// LocalLock keeps a job from overlapping with itself inside one process.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: map[string]bool{}}
}

func (l *LocalLock) Acquire(_ context.Context, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}
