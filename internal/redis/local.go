package redisclient

import (
	"context"
	"sync"
)

// localLocker serializes critical sections with in-process per-key mutexes.
// It gives the same contention semantics as the Redis locker (immediate
// ErrLockNotAcquired instead of blocking) for single-node runs and tests.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() Locker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return ErrLockNotAcquired
	}
	defer m.Unlock()

	return fn(ctx)
}
