package agent

import (
	"context"
	"sync"
)

// sessionLocks serializes turns per (user, session). Waiting respects the
// caller's context.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func sessionKey(userKey, sessionID string) string {
	return userKey + ":" + sessionID
}

// Lock blocks until the session is free or ctx is done. The returned func
// releases the lock.
func (l *sessionLocks) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sessionLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			l.release(key, lock)
		}, nil
	case <-ctx.Done():
		l.release(key, lock)
		return nil, ctx.Err()
	}
}

func (l *sessionLocks) release(key string, lock *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}
