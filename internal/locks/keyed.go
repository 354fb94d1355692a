// Package locks provides per-key mutual exclusion for serializing
// operations on a single entity, such as one user's wallet or one
// booking's escrow.
package locks

import "sync"

// Keyed hands out a mutex per string key. Mutexes are created lazily
// and kept for the lifetime of the Keyed value, which bounds memory by
// the number of distinct keys seen.
type Keyed struct {
	mu sync.Map // key -> *sync.Mutex
}

// Lock acquires the mutex for key and returns the matching unlock
// function. Callers typically defer the returned func.
func (k *Keyed) Lock(key string) func() {
	v, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
