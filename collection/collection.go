// Package collection implements an ordered, observable, in-memory set of items.
// Listeners are notified synchronously after each effective mutation.
package collection

import (
	"errors"
	"fmt"
)

// Kind identifies a lifecycle notification.
type Kind int

const (
	Added   Kind = iota // Item became a member.
	Removed             // Item stopped being a member.
	Changed             // Item is still a member but its state changed.
)

// String returns the lowercase name of the notification kind.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single lifecycle notification carrying the affected item.
type Event[T comparable] struct {
	Kind Kind
	Item T
}

// Listener receives events. A returned error is handed back to the caller
// that mutated the collection.
type Listener[T comparable] func(Event[T]) error

// Collection is an ordered set of comparable items.
// It is not safe for concurrent use; callers must confine it to one goroutine.
type Collection[T comparable] struct {
	items     []T
	members   map[T]struct{}
	listeners []*subscription[T]
}

type subscription[T comparable] struct {
	fn Listener[T]
}

// New creates a collection seeded with items. Duplicates are dropped.
// Seeding does not notify anyone.
func New[T comparable](items ...T) *Collection[T] {
	c := &Collection[T]{members: make(map[T]struct{}, len(items))}
	for _, item := range items {
		if _, ok := c.members[item]; ok {
			continue
		}
		c.members[item] = struct{}{}
		c.items = append(c.items, item)
	}
	return c
}

// Items returns a copy of the members in membership order.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of members.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Contains reports whether item is a member.
func (c *Collection[T]) Contains(item T) bool {
	_, ok := c.members[item]
	return ok
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes the registration. Calling cancel more than once is harmless.
func (c *Collection[T]) Subscribe(fn Listener[T]) (cancel func()) {
	sub := &subscription[T]{fn: fn}
	c.listeners = append(c.listeners, sub)
	return func() {
		for i, s := range c.listeners {
			if s == sub {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Add appends items that are not yet members, emitting Added for each one.
// Items that are already members are ignored.
func (c *Collection[T]) Add(items ...T) error {
	var errs []error
	for _, item := range items {
		if _, ok := c.members[item]; ok {
			continue
		}
		c.members[item] = struct{}{}
		c.items = append(c.items, item)
		errs = append(errs, c.emit(Event[T]{Kind: Added, Item: item}))
	}
	return errors.Join(errs...)
}

// Remove drops members, emitting Removed for each one. Unknown items are ignored.
func (c *Collection[T]) Remove(items ...T) error {
	var errs []error
	for _, item := range items {
		if _, ok := c.members[item]; !ok {
			continue
		}
		delete(c.members, item)
		for i, it := range c.items {
			if it == item {
				c.items = append(c.items[:i], c.items[i+1:]...)
				break
			}
		}
		errs = append(errs, c.emit(Event[T]{Kind: Removed, Item: item}))
	}
	return errors.Join(errs...)
}

// Touch emits Changed for a member whose state was mutated in place.
// Unknown items are ignored.
func (c *Collection[T]) Touch(item T) error {
	if _, ok := c.members[item]; !ok {
		return nil
	}
	return c.emit(Event[T]{Kind: Changed, Item: item})
}

// emit delivers ev to every listener registered at the time of the call.
func (c *Collection[T]) emit(ev Event[T]) error {
	subs := make([]*subscription[T], len(c.listeners))
	copy(subs, c.listeners)

	var errs []error
	for _, s := range subs {
		if err := s.fn(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
