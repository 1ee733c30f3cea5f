// Package locker serialises work on the same identifier. Goroutines that
// acquire different ids never block each other; entries are reference counted
// and dropped once nobody holds or waits on them.
package locker

import (
	"sync"
)

// Locker manages one mutex per id. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockRef
}

type lockRef struct {
	mu    sync.Mutex
	count int
}

func New() *Locker {
	return new(Locker)
}

// Acquire blocks until the lock for id is held by the caller.
func (l *Locker) Acquire(id string) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*lockRef)
	}
	ref, ok := l.locks[id]
	if !ok {
		ref = &lockRef{}
		l.locks[id] = ref
	}
	ref.count++
	l.mu.Unlock()

	ref.mu.Lock()
}

// Release unlocks id. Releasing an id that is not held is a no-op.
func (l *Locker) Release(id string) {
	l.mu.Lock()
	ref, ok := l.locks[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	ref.count--
	if ref.count == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()

	ref.mu.Unlock()
}

// Held returns the number of ids currently held or waited on.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
