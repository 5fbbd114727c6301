// Package lock provides in-process locks scoped to a key, so that work on
// one associate never waits on work for another.
package lock

import "sync"

type entry struct {
	mu   sync.RWMutex
	refs int
}

// KeyedRWMutex hands out one RWMutex per key. Entries are reference counted
// and dropped once no goroutine holds or waits on them.
type KeyedRWMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedRWMutex creates an empty keyed lock
func NewKeyedRWMutex() *KeyedRWMutex {
	return &KeyedRWMutex{entries: make(map[string]*entry)}
}

func (k *KeyedRWMutex) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedRWMutex) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock takes the write lock for key and returns its release function
func (k *KeyedRWMutex) Lock(key string) (unlock func()) {
	e := k.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}
}

// RLock takes the read lock for key and returns its release function
func (k *KeyedRWMutex) RLock(key string) (unlock func()) {
	e := k.acquire(key)
	e.mu.RLock()
	return func() {
		e.mu.RUnlock()
		k.release(key, e)
	}
}

// Len returns the number of keys currently tracked
func (k *KeyedRWMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
