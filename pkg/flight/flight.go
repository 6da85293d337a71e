// Package flight collapses duplicate work. A turn resubmitted while an
// identical one is running joins the running call; a turn resubmitted
// shortly after an identical one finished gets the cached result instead
// of a fresh model call.
package flight

import (
	"sync"
	"time"
)

type call[V any] struct {
	val  V
	err  error
	done chan struct{}
}

type finished[V any] struct {
	val      V
	deadline time.Time
}

// Cache deduplicates keyed work. Successful results are held for the
// configured TTL; failures are handed to concurrent waiters but never
// cached, so a retry after a failed turn runs fresh work.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	pending  map[K]*call[V]
	finished map[K]finished[V]
	ttl      time.Duration
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		pending:  make(map[K]*call[V]),
		finished: make(map[K]finished[V]),
		ttl:      ttl,
	}
}

// Do returns the cached or in-flight result for key, running work only
// when neither exists.
func (c *Cache[K, V]) Do(key K, work func() (V, error)) (V, error) {
	c.mu.Lock()

	if f, ok := c.finished[key]; ok {
		if time.Now().Before(f.deadline) {
			c.mu.Unlock()
			return f.val, nil
		}
		delete(c.finished, key)
	}

	if inflight, ok := c.pending[key]; ok {
		c.mu.Unlock()
		<-inflight.done
		return inflight.val, inflight.err
	}

	cl := &call[V]{done: make(chan struct{})}
	c.pending[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = work()

	c.mu.Lock()
	delete(c.pending, key)
	if cl.err == nil && c.ttl > 0 {
		c.finished[key] = finished[V]{val: cl.val, deadline: time.Now().Add(c.ttl)}
	}
	c.prune()
	c.mu.Unlock()

	close(cl.done)
	return cl.val, cl.err
}

// Forget drops any cached result for key.
func (c *Cache[K, V]) Forget(key K) {
	c.mu.Lock()
	delete(c.finished, key)
	c.mu.Unlock()
}

// prune drops expired results. Called with the lock held.
func (c *Cache[K, V]) prune() {
	now := time.Now()
	for k, f := range c.finished {
		if now.After(f.deadline) {
			delete(c.finished, k)
		}
	}
}
