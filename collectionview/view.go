package collectionview

// View draws a single item to some target.
type View[T comparable] interface {
	// Render draws item. It is called only while the owning entry is dirty.
	Render(item T) error
	// Remove tears the view down. It is called once, when the item leaves
	// the collection.
	Remove() error
}

// Factory builds the view owned by one cache entry.
type Factory[T comparable] func(item T) View[T]

// NopView is a view that draws nothing.
type NopView[T comparable] struct{}

// Render does nothing.
func (NopView[T]) Render(T) error { return nil }

// Remove does nothing.
func (NopView[T]) Remove() error { return nil }

// NopFactory returns a factory that builds NopView values.
func NopFactory[T comparable]() Factory[T] {
	return func(T) View[T] { return NopView[T]{} }
}
