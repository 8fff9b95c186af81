package collectionview

import "github.com/smileynet/cubone/collection"

// Hooks replaces the default render for individual notification kinds.
// A nil field keeps the default: a full render pass after the cache update.
type Hooks[T comparable] struct {
	Added   func(item T) error
	Removed func(item T) error
	Changed func(item T) error
}

// resolve returns the hook configured for kind, or nil.
func (h Hooks[T]) resolve(kind collection.Kind) func(T) error {
	switch kind {
	case collection.Added:
		return h.Added
	case collection.Removed:
		return h.Removed
	case collection.Changed:
		return h.Changed
	default:
		return nil
	}
}
