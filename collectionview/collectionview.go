// Package collectionview keeps one view per member of an observable
// collection and redraws only the views whose items changed.
//
// A CollectionView subscribes to added, removed and changed notifications.
// Each notification first updates the cache (create, destroy or mark dirty)
// and then either calls the matching hook, when one is configured, or runs a
// render pass. A render pass draws the dirty entries in cache order and marks
// them clean.
//
// A CollectionView is not safe for concurrent use. Hosts that mutate the
// collection from several goroutines must funnel those mutations through a
// single owner.
package collectionview

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smileynet/cubone/collection"
)

// Source is the observable collection a CollectionView tracks.
type Source[T comparable] interface {
	Items() []T
	Subscribe(fn collection.Listener[T]) (cancel func())
}

// Options configures a CollectionView.
type Options[T comparable] struct {
	Collection Source[T]  // Source collection (default: empty collection.Collection).
	View       Factory[T] // Builds one view per item (default: NopFactory).
	Hooks      Hooks[T]   // Per-event overrides of the default render.

	// Initialize is called once, after the cache is primed, with the full options.
	Initialize func(v *CollectionView[T], opts Options[T]) error

	Logger   *zap.Logger // Debug logging of events and passes (default: no-op).
	Observer Observer    // Event and render pass instrumentation (default: no-op).
}

// CollectionView synchronizes a cache of views with a source collection.
type CollectionView[T comparable] struct {
	collection  Source[T]
	factory     Factory[T]
	cache       *Cache[T]
	hooks       Hooks[T]
	log         *zap.Logger
	observer    Observer
	unsubscribe func()
}

// New builds a CollectionView, primes the cache with every item already in
// the collection and subscribes to further notifications. Priming does not
// render and does not call hooks.
func New[T comparable](opts Options[T]) (*CollectionView[T], error) {
	if opts.Collection == nil {
		opts.Collection = collection.New[T]()
	}
	if opts.View == nil {
		opts.View = NopFactory[T]()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	v := &CollectionView[T]{
		collection: opts.Collection,
		factory:    opts.View,
		cache:      NewCache(opts.View),
		hooks:      opts.Hooks,
		log:        opts.Logger,
		observer:   opts.Observer,
	}

	for _, item := range opts.Collection.Items() {
		if _, err := v.cache.Insert(item); err != nil {
			return nil, fmt.Errorf("collectionview: priming cache: %w", err)
		}
	}
	v.unsubscribe = opts.Collection.Subscribe(v.handle)

	if opts.Initialize != nil {
		if err := opts.Initialize(v, opts); err != nil {
			v.unsubscribe()
			return nil, fmt.Errorf("collectionview: initialize: %w", err)
		}
	}

	v.log.Debug("collection view ready", zap.Int("entries", v.cache.Len()))
	return v, nil
}

// Collection returns the tracked source collection.
func (v *CollectionView[T]) Collection() Source[T] {
	return v.collection
}

// Factory returns the view factory used for new entries.
func (v *CollectionView[T]) Factory() Factory[T] {
	return v.factory
}

// Cache returns the cache for inspection.
func (v *CollectionView[T]) Cache() *Cache[T] {
	return v.cache
}

// handle applies one notification to the cache and then dispatches it to
// the configured hook or to a render pass.
func (v *CollectionView[T]) handle(ev collection.Event[T]) error {
	var err error
	switch ev.Kind {
	case collection.Added:
		_, err = v.cache.Insert(ev.Item)
	case collection.Removed:
		err = v.cache.Remove(ev.Item)
	case collection.Changed:
		v.cache.MarkDirty(ev.Item)
	default:
		return fmt.Errorf("collectionview: unknown event %v", ev.Kind)
	}
	if err != nil {
		return err
	}

	hook := v.hooks.resolve(ev.Kind)
	v.observer.EventHandled(ev.Kind, hook != nil)
	v.log.Debug("event",
		zap.Stringer("kind", ev.Kind),
		zap.Bool("hooked", hook != nil),
		zap.Int("entries", v.cache.Len()),
	)

	if hook != nil {
		return hook(ev.Item)
	}
	_, err = v.Render()
	return err
}

// Render draws every dirty entry in cache order and marks it clean.
// It stops at the first draw error; entries drawn before it stay clean and
// the failing entry and everything after it stay dirty.
// The receiver is returned so calls can be chained.
func (v *CollectionView[T]) Render() (*CollectionView[T], error) {
	start := time.Now()
	drawn := 0
	var err error

	for _, e := range v.cache.DirtyEntries() {
		if drawErr := e.view.Render(e.item); drawErr != nil {
			err = fmt.Errorf("%w: %w", ErrDraw, drawErr)
			break
		}
		e.dirty = false
		drawn++
	}

	elapsed := time.Since(start)
	v.observer.RenderPass(drawn, elapsed, err)
	if err != nil {
		v.log.Debug("render pass failed", zap.Int("drawn", drawn), zap.Error(err))
		return v, err
	}
	v.log.Debug("render pass", zap.Int("drawn", drawn), zap.Duration("elapsed", elapsed))
	return v, nil
}

// Expire marks every entry dirty and renders, redrawing every view.
func (v *CollectionView[T]) Expire() error {
	v.cache.MarkAllDirty()
	_, err := v.Render()
	return err
}

// ExpireItem marks the entry for item dirty, if there is one, and renders.
// The render pass runs even when item is not tracked.
func (v *CollectionView[T]) ExpireItem(item T) error {
	v.cache.MarkDirty(item)
	_, err := v.Render()
	return err
}

// Close stops listening to the collection and tears down every view.
// Teardown errors are joined; all views are removed regardless.
func (v *CollectionView[T]) Close() error {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	var errs []error
	for _, item := range v.cache.Items() {
		errs = append(errs, v.cache.Remove(item))
	}
	return errors.Join(errs...)
}
