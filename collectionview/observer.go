package collectionview

import (
	"time"

	"github.com/smileynet/cubone/collection"
)

// Observer receives instrumentation callbacks from a CollectionView.
type Observer interface {
	// EventHandled is called after the cache has absorbed a notification.
	// hooked reports whether a hook replaced the default render.
	EventHandled(kind collection.Kind, hooked bool)
	// RenderPass is called at the end of every render pass.
	RenderPass(drawn int, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) EventHandled(collection.Kind, bool) {}
func (nopObserver) RenderPass(int, time.Duration, error) {}
