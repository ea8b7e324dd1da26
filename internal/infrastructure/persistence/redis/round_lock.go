package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLockNotHeld is returned when releasing a lock this holder does not own.
var ErrLockNotHeld = errors.New("lock: not held by this owner")

// RoundLock is a distributed lock keyed by round. When several worker
// instances run, only the one holding the lock executes a scheduled round;
// generation itself is idempotent, so a lost lock degrades to wasted work,
// never to duplicate proposals.
type RoundLock struct {
	cache *Cache
	owner string
}

// NewRoundLock creates a new RoundLock. The owner string identifies this
// process instance (typically hostname + pid).
func NewRoundLock(cache *Cache, owner string) *RoundLock {
	return &RoundLock{cache: cache, owner: owner}
}

// Acquire tries to take the lock for a round key. Returns false if another
// instance holds it.
func (l *RoundLock) Acquire(ctx context.Context, roundKey string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = TTLRoundLock
	}

	ok, err := l.cache.SetNX(ctx, LockKey(roundKey), l.owner, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire round lock: %w", err)
	}

	return ok, nil
}

// Release releases the lock for a round key. Only the owner may release.
func (l *RoundLock) Release(ctx context.Context, roundKey string) error {
	key := LockKey(roundKey)

	var owner string
	err := l.cache.Get(ctx, key, &owner)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("failed to read round lock: %w", err)
	}

	if owner != l.owner {
		return ErrLockNotHeld
	}

	return l.cache.Delete(ctx, key)
}
