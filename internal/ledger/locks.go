package ledger

import "sync"

// keyedMutex hands out one mutex per username so that the whole
// load-mutate-persist span of a ledger operation runs under mutual
// exclusion. Two requests racing on the same ledger would otherwise lose
// updates, and a parent approving while a child spends is an expected
// usage pattern.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// lockPair acquires the mutexes for two usernames in lexicographic order so
// that concurrent cross-account operations cannot deadlock. Both keys may be
// equal, in which case a single mutex is taken.
func (k *keyedMutex) lockPair(a, b string) func() {
	if a == b {
		return k.lock(a)
	}
	if a > b {
		a, b = b, a
	}
	unlockA := k.lock(a)
	unlockB := k.lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}
