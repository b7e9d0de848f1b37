// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rategate

import "sync"

// lockRegistry lazily creates one lock per article id. Entries are never
// removed; creation is serialized by mu.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[int64]chan struct{})}
}

func (r *lockRegistry) get(id int64) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		r.locks[id] = l
	}
	return l
}

func (r *lockRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
