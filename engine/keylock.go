package engine

import "sync"

// =============================================================================
// KEY MUTEX - Single-writer-per-key exclusivity for ledger rows
// =============================================================================

// KeyMutex provides mutual exclusion per balance key. Writers for the
// same (user, policy, year) serialize; writers for different keys do
// not contend. Entries are reference counted and removed when the last
// holder releases, so the map does not grow with the key space.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[BalanceKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[BalanceKey]*keyLock)}
}

// Lock acquires exclusive access to a key, blocking until available.
func (km *KeyMutex) Lock(key BalanceKey) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases a key acquired with Lock.
func (km *KeyMutex) Unlock(key BalanceKey) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		km.mu.Unlock()
		panic("engine: unlock of unheld key " + key.String())
	}
	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	l.mu.Unlock()
}
