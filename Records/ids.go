package Records

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var now = time.Now

var lastID atomic.Int64

// newID returns prefix-<unix millis>. Ids handed out by one process are
// strictly increasing, so two calls in the same millisecond never collide.
func newID(prefix string) string {
	ms := now().UnixMilli()
	for {
		last := lastID.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if lastID.CompareAndSwap(last, next) {
			return fmt.Sprintf("%s-%d", prefix, next)
		}
	}
}

func today() string {
	return now().Format("2006-01-02")
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
