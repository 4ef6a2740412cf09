// internal/cache/lru.go
//
// Bounded, TTL-aware LRU used by the field-mapping and form-schema tiers.
//
// Context
// -------
// Every entry remembers when it was stored.  An entry is fresh while its age
// is at most the TTL; a stale entry is evicted the moment a reader touches it
// and is never returned.  When the cache grows past its capacity the least
// recently used entry is dropped.  The clock is injected so tests can step
// time without sleeping.
//
// Notes
// -----
//   - One mutex guards the whole structure.  Writers are last-write-wins; the
//     values stored here are refetchable, so contention is not worth finer
//     locking.
//   - Oxford commas, two spaces after periods.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Clock returns the current time.  time.Now satisfies it.
type Clock func() time.Time

// TTL is a generic least-recently-used cache with per-entry expiry.  The
// zero value is unusable; construct with New.
type TTL[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	now  Clock
	ll   *list.List
	dict map[K]*list.Element
}

type pair[K comparable, V any] struct {
	key      K
	val      V
	storedAt time.Time
}

// New returns a TTL cache holding at most capacity entries.  Panics on
// capacity < 1.  A nil clock defaults to time.Now.
func New[K comparable, V any](capacity int, ttl time.Duration, now Clock) *TTL[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	if now == nil {
		now = time.Now
	}
	return &TTL[K, V]{
		cap:  capacity,
		ttl:  ttl,
		now:  now,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get returns a fresh value and marks it MRU.  Stale entries are removed.
func (c *TTL[K, V]) Get(key K) (val V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, hit := c.dict[key]
	if !hit {
		return val, false
	}
	p := ele.Value.(pair[K, V])
	if c.now().Sub(p.storedAt) > c.ttl {
		c.removeElement(ele)
		return val, false
	}
	c.ll.MoveToFront(ele)
	return p.val, true
}

// Add inserts or replaces a value, stamping it with the current time.
func (c *TTL[K, V]) Add(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := pair[K, V]{key: key, val: val, storedAt: c.now()}
	if ele, hit := c.dict[key]; hit {
		ele.Value = p
		c.ll.MoveToFront(ele)
		return
	}
	c.dict[key] = c.ll.PushFront(p)
	if c.ll.Len() > c.cap {
		c.removeElement(c.ll.Back())
	}
}

// Remove drops key if present.
func (c *TTL[K, V]) Remove(key K) {
	c.mu.Lock()
	if ele, hit := c.dict[key]; hit {
		c.removeElement(ele)
	}
	c.mu.Unlock()
}

// RemoveIf drops every key for which match returns true.
func (c *TTL[K, V]) RemoveIf(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for key, ele := range c.dict {
		if match(key) {
			c.removeElement(ele)
			n++
		}
	}
	return n
}

// Sweep drops every stale entry and reports how many were removed.
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var n int
	for ele := c.ll.Back(); ele != nil; {
		prev := ele.Prev()
		if now.Sub(ele.Value.(pair[K, V]).storedAt) > c.ttl {
			c.removeElement(ele)
			n++
		}
		ele = prev
	}
	return n
}

// Purge empties the cache.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	c.ll.Init()
	c.dict = make(map[K]*list.Element, c.cap)
	c.mu.Unlock()
}

// Len reports current size, stale entries included.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *TTL[K, V]) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	delete(c.dict, ele.Value.(pair[K, V]).key)
}
