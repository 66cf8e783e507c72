// Package lock provides keyed locking for operations that must not interleave:
// balance mutations of one user, or resolution steps of one game session.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex with reference counting for cleanup.
type keyMutex struct {
	mu sync.Mutex
	// refs counts holders and waiters; guarded by KeyedLock.mu.
	refs int
}

// KeyedLock provides one mutex per string key. An entry lives while some goroutine
// holds or waits for it, so Unlock always releases the mutex its caller acquired.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*keyMutex)}
}

// ref retrieves or creates the mutex for the given key and counts the caller on it.
func (kl *KeyedLock) ref(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	l, ok := kl.locks[key]
	if !ok {
		l = &keyMutex{}
		kl.locks[key] = l
	}
	l.refs++
	return l
}

// unref drops the caller's reference and removes the entry once nobody uses it.
func (kl *KeyedLock) unref(key string, l *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	l.refs--
	if l.refs == 0 && kl.locks[key] == l {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for a key, blocking until it is free.
func (kl *KeyedLock) Lock(key string) {
	l := kl.ref(key)
	l.mu.Lock()
}

// Unlock releases the lock for a key. Unlocking a key nobody references is a no-op.
func (kl *KeyedLock) Unlock(key string) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	l.mu.Unlock()
	kl.unref(key, l)
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyedLock) TryLock(key string) bool {
	l := kl.ref(key)
	if l.mu.TryLock() {
		return true
	}
	kl.unref(key, l)
	return false
}

// LockWithTimeout attempts to acquire the lock until the timeout or the context expires.
// Returns true if the lock was acquired.
func (kl *KeyedLock) LockWithTimeout(ctx context.Context, key string, timeout time.Duration) bool {
	l := kl.ref(key)

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.mu.TryLock() {
			return true
		}
		select {
		case <-timeoutCtx.Done():
			kl.unref(key, l)
			return false
		case <-ticker.C:
		}
	}
}

// WithLock executes a function while holding the key's lock.
func (kl *KeyedLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}
