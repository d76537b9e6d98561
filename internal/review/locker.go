package review

import "sync"

// keyLocker hands out one mutex per key and forgets keys nobody holds
type keyLocker struct {
	mu    sync.Mutex
	locks map[itemKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[itemKey]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock func
func (l *keyLocker) Lock(key itemKey) func() {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &keyLock{}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// held returns the number of keys currently locked or waited on
func (l *keyLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
