package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL    = 10 * time.Minute
	DefaultLockPrefix = "pasma:cron-worker:lock:"
)

// Lock coordinates exclusive runs of one job across worker replicas.
type Lock interface {
	Acquire(ctx context.Context, job string) (bool, error)
	Release(ctx context.Context, job string) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock implements Lock using Redis SETNX + TTL, one key per job.
type RedisLock struct {
	client redisStore
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, prefix string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if prefix == "" {
		prefix = DefaultLockPrefix
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, prefix: prefix, ttl: ttl, owners: make(map[string]string)}, nil
}

// Key returns the redis key guarding job.
func (l *RedisLock) Key(job string) string {
	return l.prefix + job
}

// Acquire tries to own the job's lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context, job string) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.Key(job), owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owners[job] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the job's lock only if the owner value still matches. The
// check and delete run as one script so a lock that expired and was taken by
// another replica survives.
func (l *RedisLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	owner := l.owners[job]
	delete(l.owners, job)
	l.mu.Unlock()
	if owner == "" {
		return nil
	}

	if _, err := l.client.CompareAndDelete(ctx, l.Key(job), owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
