// Package memstore is the in-memory resource store for users, jobs, videos
// and usage records. It is the system of record for this service; Redis only
// holds the atomic coordination state (queues, rate windows, counters).
package memstore

import (
	"sort"
	"sync"
)

// Collection is a mutex-guarded map of resources keyed by ID.
type Collection[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewCollection constructs an empty Collection.
func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{items: make(map[string]T)}
}

// Get returns the item with the given ID.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Create stores a new item. It reports false if the ID already exists.
func (c *Collection[T]) Create(id string, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[id]; exists {
		return false
	}
	c.items[id] = item
	return true
}

// Update applies fn to the item under the collection lock, so concurrent
// read-modify-write cycles cannot interleave. It reports false if the ID
// does not exist.
func (c *Collection[T]) Update(id string, fn func(T) T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	item = fn(item)
	c.items[id] = item
	return item, true
}

// Delete removes the item and reports whether it existed.
func (c *Collection[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

// Count returns the number of items matching filter; a nil filter matches
// everything.
func (c *Collection[T]) Count(filter func(T) bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if filter == nil {
		return len(c.items)
	}
	n := 0
	for _, item := range c.items {
		if filter(item) {
			n++
		}
	}
	return n
}

// List returns the page [offset, offset+limit) of matching items after
// sorting, plus the total match count. A nil filter matches everything; a
// nil less leaves map order (callers that page must pass one).
func (c *Collection[T]) List(filter func(T) bool, less func(a, b T) bool, offset, limit int) ([]T, int) {
	c.mu.RLock()
	matched := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if filter == nil || filter(item) {
			matched = append(matched, item)
		}
	}
	c.mu.RUnlock()

	if less != nil {
		sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })
	}

	total := len(matched)
	if offset >= total {
		return []T{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total
}
