package storage

import "sync"

// KeyedMutex hands out one mutex per string key. The version store uses
// it to serialise multi-step read-modify-write sequences on a single
// file while leaving unrelated files free to proceed in parallel.
//
// Entries are reference counted and removed once the last holder
// releases, so the map does not grow with the number of files ever
// touched.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the mutex for key is held and returns the matching
// unlock function. The unlock function must be called exactly once.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
