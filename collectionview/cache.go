package collectionview

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateItem is returned when inserting an item that already has an entry.
	ErrDuplicateItem = errors.New("collectionview: item already cached")

	// ErrTeardown wraps an error returned by View.Remove.
	ErrTeardown = errors.New("collectionview: view teardown failed")

	// ErrDraw wraps an error returned by View.Render.
	ErrDraw = errors.New("collectionview: view draw failed")
)

// Entry pairs a tracked item with the view it owns.
type Entry[T comparable] struct {
	item  T
	view  View[T]
	dirty bool
}

// Item returns the tracked source item.
func (e *Entry[T]) Item() T { return e.item }

// View returns the view owned by the entry.
func (e *Entry[T]) View() View[T] { return e.view }

// Dirty reports whether the view must be redrawn before it is current.
func (e *Entry[T]) Dirty() bool { return e.dirty }

// Cache is the ordered set of entries, one per tracked item.
// It is not safe for concurrent use; callers must synchronize externally
// or confine access to a single goroutine.
type Cache[T comparable] struct {
	factory Factory[T]
	entries []*Entry[T]
	index   map[T]*Entry[T]
}

// NewCache creates an empty cache that builds views with factory.
func NewCache[T comparable](factory Factory[T]) *Cache[T] {
	if factory == nil {
		factory = NopFactory[T]()
	}
	return &Cache[T]{
		factory: factory,
		index:   make(map[T]*Entry[T]),
	}
}

// Insert appends a dirty entry with a freshly built view for item.
// Inserting an item that is already cached returns ErrDuplicateItem and
// leaves the cache unchanged.
func (c *Cache[T]) Insert(item T) (*Entry[T], error) {
	if _, ok := c.index[item]; ok {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateItem, item)
	}
	e := &Entry[T]{
		item:  item,
		view:  c.factory(item),
		dirty: true,
	}
	c.entries = append(c.entries, e)
	c.index[item] = e
	return e, nil
}

// Remove tears down the view for item and drops its entry.
// Removing an item that has no entry is a no-op. The entry is dropped even
// when teardown fails; the teardown error is returned wrapped in ErrTeardown.
func (c *Cache[T]) Remove(item T) error {
	e, ok := c.index[item]
	if !ok {
		return nil
	}
	teardownErr := e.view.Remove()

	delete(c.index, item)
	for i, cur := range c.entries {
		if cur == e {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}

	if teardownErr != nil {
		return fmt.Errorf("%w: %w", ErrTeardown, teardownErr)
	}
	return nil
}

// MarkDirty flags the entry for item as dirty and reports whether one existed.
func (c *Cache[T]) MarkDirty(item T) bool {
	e, ok := c.index[item]
	if !ok {
		return false
	}
	e.dirty = true
	return true
}

// MarkAllDirty flags every entry as dirty.
func (c *Cache[T]) MarkAllDirty() {
	for _, e := range c.entries {
		e.dirty = true
	}
}

// DirtyEntries returns the dirty entries in store order.
func (c *Cache[T]) DirtyEntries() []*Entry[T] {
	var out []*Entry[T]
	for _, e := range c.entries {
		if e.dirty {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the entry for item, or nil and false on miss.
func (c *Cache[T]) Lookup(item T) (*Entry[T], bool) {
	e, ok := c.index[item]
	return e, ok
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entry list in store order.
func (c *Cache[T]) Entries() []*Entry[T] {
	out := make([]*Entry[T], len(c.entries))
	copy(out, c.entries)
	return out
}

// Items returns the tracked items in store order.
func (c *Cache[T]) Items() []T {
	out := make([]T, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.item
	}
	return out
}
