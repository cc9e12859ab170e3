// Package lock provides keyed in-process locks that serialize requests
// touching the same compliment, exchange or user before they reach the database.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex is a one-slot semaphore with a count of holders and waiters.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// KeyLock provides per-key locking. Entries are dropped once no goroutine
// holds or waits on them, so the map does not grow with every id seen.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

func (kl *KeyLock) ref(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.refs++
	return m
}

func (kl *KeyLock) unref(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key, blocking until it is free.
func (kl *KeyLock) Lock(key string) {
	m := kl.ref(key)
	m.ch <- struct{}{}
}

// Unlock releases the lock for key. Unlocking a key that is not held is a no-op.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-m.ch:
		kl.unref(key, m)
	default:
	}
}

// LockContext acquires the lock for key or returns ctx.Err() if ctx ends first.
func (kl *KeyLock) LockContext(ctx context.Context, key string) error {
	m := kl.ref(key)
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.unref(key, m)
		return ctx.Err()
	}
}

// WithLockContext executes fn while holding the key's lock, waiting at most
// timeout. A wait that runs out returns ErrLockTimeout; a cancelled parent
// context returns its error.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := kl.LockContext(waitCtx, key); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	return fn()
}

// Len returns the number of keys currently held or awaited.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
