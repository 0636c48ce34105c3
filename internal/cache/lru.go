package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// ViewCache is a bounded LRU with TTL whose entries belong to a single
// snapshot version at a time.
type ViewCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	version  uint64
	index    map[string]*list.Element
	order    *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// NewViewCache creates a cache holding at most capacity entries for ttl.
func NewViewCache[T any](capacity int, ttl time.Duration) *ViewCache[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ViewCache[T]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		index:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *ViewCache[T]) Get(version uint64, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok || version != c.version {
		c.misses.Add(1)
		return zero, false
	}
	e := el.Value.(*entry[T])
	if c.now().After(e.expires) {
		c.remove(el)
		c.misses.Add(1)
		return zero, false
	}
	c.order.MoveToFront(el)
	c.hits.Add(1)
	return e.value, true
}

func (c *ViewCache[T]) Set(version uint64, key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case version < c.version:
		return
	case version > c.version:
		c.reset()
		c.version = version
	}

	e := &entry[T]{key: key, value: data, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	if c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}

func (c *ViewCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *ViewCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CleanExpired drops entries past their TTL and returns how many went.
func (c *ViewCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[T]).expires) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *ViewCache[T]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.Size()}
}

func (c *ViewCache[T]) reset() {
	clear(c.index)
	c.order.Init()
}

func (c *ViewCache[T]) remove(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
