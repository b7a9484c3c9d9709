// Package aicache provides a size-bounded in-process cache for model
// responses. Classification of the same inbound text is deterministic,
// so repeated requests can skip the provider round-trip.
package aicache

import (
	"container/list"
	"sync"
)

// DefaultMaxEntries bounds the cache so a long-lived process cannot
// grow it without limit.
const DefaultMaxEntries = 4096

type entry struct {
	key   string
	value string
}

// Cache is a fixed-capacity LRU cache keyed by request text. Safe for
// concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List
	items      map[string]*list.Element
}

// New creates a cache holding at most maxEntries values. A non-positive
// limit falls back to DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the cached value for key, marking it recently used
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(entry).value, true
}

// Set stores a value, evicting the least recently used entry when full
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value = entry{key: key, value: value}
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(entry{key: key, value: value})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(entry).key)
		}
	}
}

// Len reports the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
