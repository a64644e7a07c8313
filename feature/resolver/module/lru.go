package module

import "container/list"

// DefaultCacheSize is the module context cache capacity used when the
// configuration does not set one.
const DefaultCacheSize = 5

// LRU is a bounded cache of fully loaded module contexts keyed by normalized
// module path. A Get refreshes the entry to most-recently-used; a Put at
// capacity evicts the least-recently-used entry first. Eviction only means a
// future re-activation redoes the loader's work; it never touches the
// currently installed tiers.
type LRU struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
	onEvict  func(*Context)
}

type lruItem struct {
	key string
	ctx *Context
}

// NewLRU creates a cache with the given capacity. A non-positive capacity
// falls back to DefaultCacheSize. onEvict, if non-nil, runs for every entry
// removed by eviction or Clear.
func NewLRU(capacity int, onEvict func(*Context)) *LRU {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		onEvict:  onEvict,
	}
}

// Get returns the cached context and refreshes it to most-recently-used.
func (c *LRU) Get(key string) (*Context, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruItem).ctx, true
}

// Put inserts or replaces the context for a key, evicting the
// least-recently-used entry when the cache is full.
func (c *LRU) Put(key string, ctx *Context) {
	if el, ok := c.items[key]; ok {
		el.Value.(*lruItem).ctx = ctx
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(&lruItem{key: key, ctx: ctx})
}

// Holds reports whether the cache owns exactly this context under the key,
// without refreshing its position. A different context cached under the same
// key does not count: ownership is by identity.
func (c *LRU) Holds(key string, ctx *Context) bool {
	el, ok := c.items[key]
	return ok && el.Value.(*lruItem).ctx == ctx
}

// Len returns the number of cached contexts.
func (c *LRU) Len() int {
	return c.order.Len()
}

// Clear empties the cache, running onEvict for every entry.
func (c *LRU) Clear() {
	for key, el := range c.items {
		if c.onEvict != nil {
			c.onEvict(el.Value.(*lruItem).ctx)
		}
		delete(c.items, key)
	}
	c.order.Init()
}

func (c *LRU) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	item := el.Value.(*lruItem)
	c.order.Remove(el)
	delete(c.items, item.key)
	if c.onEvict != nil {
		c.onEvict(item.ctx)
	}
}
