// Package dedupe tracks keys that were already handled, for at-most-once
// processing.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper[K comparable] interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key K) bool

	// Unrecord removes a key so it can be retried. Use it when a key was
	// recorded but the work it guards could not be handed off.
	Unrecord(ctx context.Context, key K)

	Size() int64
}

// node is an entry of the insertion-ordered list.
type node[K comparable] struct {
	key        K
	prev, next *node[K]
}

// inMemoryDeduper implements Deduper with a map plus an insertion-ordered
// doubly linked list. When bounded, the oldest key is evicted first.
type inMemoryDeduper[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]*node[K]
	head    *node[K] // oldest
	tail    *node[K] // newest
	maxSize int      // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper[K comparable](opts ...Option) Deduper[K] {
	cfg := options{maxSize: defaultMaxSize}

	// Apply all options
	for _, opt := range opts {
		opt(&cfg)
	}

	return &inMemoryDeduper[K]{
		seen:    make(map[K]*node[K]),
		maxSize: cfg.maxSize,
	}
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper[K]) SeenAndRecord(ctx context.Context, key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := &node[K]{key: key, prev: d.tail}
	if d.tail != nil {
		d.tail.next = n
	} else {
		d.head = n
	}
	d.tail = n
	d.seen[key] = n
	d.size.Add(1)
	return false
}

// Unrecord removes a key from the seen set.
func (d *inMemoryDeduper[K]) Unrecord(ctx context.Context, key K) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.seen[key]; exists {
		d.unlink(n)
	}
}

// evictOldest removes the head. Must be called with d.mu held.
func (d *inMemoryDeduper[K]) evictOldest() {
	if d.head != nil {
		d.unlink(d.head)
	}
}

// unlink removes n from the list and the map. Must be called with d.mu held.
func (d *inMemoryDeduper[K]) unlink(n *node[K]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(d.seen, n.key)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper[K]) Size() int64 {
	return d.size.Load()
}
