package service

import "sync"

// keyedMutex linearizes updates per key. All per-project state updates go
// through one of these: a single writer at a time per project, while
// distinct projects proceed fully in parallel. Entries are never removed:
// dropping a mutex while a writer holds it would let a later caller mint a
// fresh one and race the holder, so retired keys keep their entry (the map
// is bounded by the number of distinct projects seen).
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns
// the matching unlock function.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
