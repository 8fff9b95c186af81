package collectionview

import (
	"errors"
	"testing"
	"time"

	"github.com/smileynet/cubone/collection"
)

func newView(t *testing.T, rec *recorder, items ...*model) (*CollectionView[*model], *collection.Collection[*model]) {
	t.Helper()
	c := collection.New(items...)
	v, err := New(Options[*model]{Collection: c, View: rec.factory()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return v, c
}

// assertBijection checks that cache and collection track the same items in the same order.
func assertBijection(t *testing.T, v *CollectionView[*model], c *collection.Collection[*model]) {
	t.Helper()
	want := c.Items()
	got := v.Cache().Items()
	if len(got) != len(want) {
		t.Fatalf("cache has %d entries, collection has %d items", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cache[%d] = %s, collection[%d] = %s", i, got[i].name, i, want[i].name)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	v, err := New(Options[*model]{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if v.Collection() == nil {
		t.Fatal("default collection should not be nil")
	}
	if v.Factory() == nil {
		t.Fatal("default factory should not be nil")
	}
	if v.Cache().Len() != 0 {
		t.Errorf("cache Len() = %d, want 0", v.Cache().Len())
	}

	// The default collection is observed like any other.
	c := v.Collection().(*collection.Collection[*model])
	if err := c.Add(&model{name: "a"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if v.Cache().Len() != 1 {
		t.Errorf("cache Len() after Add = %d, want 1", v.Cache().Len())
	}
}

func TestNew_KeepsCollectionAndFactory(t *testing.T) {
	rec := newRecorder()
	c := collection.New[*model]()
	v, err := New(Options[*model]{Collection: c, View: rec.factory()})
	if err != nil {
		t.Fatal(err)
	}
	if v.Collection() != Source[*model](c) {
		t.Error("Collection() should return the configured collection")
	}
}

func TestNew_PrimesWithoutRenderingOrHooks(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c")
	hookCalls := 0
	hook := func(*model) error { hookCalls++; return nil }

	v, err := New(Options[*model]{
		Collection: collection.New(ms...),
		View:       rec.factory(),
		Hooks:      Hooks[*model]{Added: hook, Removed: hook, Changed: hook},
	})
	if err != nil {
		t.Fatal(err)
	}

	if v.Cache().Len() != 3 {
		t.Fatalf("cache Len() = %d, want 3", v.Cache().Len())
	}
	if len(rec.draws) != 0 {
		t.Errorf("draws during priming = %d, want 0", len(rec.draws))
	}
	if hookCalls != 0 {
		t.Errorf("hook calls during priming = %d, want 0", hookCalls)
	}
	for _, e := range v.Cache().Entries() {
		if !e.Dirty() {
			t.Errorf("primed entry %s should be dirty", e.Item().name)
		}
	}
}

func TestNew_CallsInitializeWithOptions(t *testing.T) {
	var (
		called  int
		gotView *CollectionView[*model]
		gotOpts Options[*model]
	)
	c := collection.New(models("a")...)
	opts := Options[*model]{
		Collection: c,
		Initialize: func(v *CollectionView[*model], o Options[*model]) error {
			called++
			gotView = v
			gotOpts = o
			if v.Cache().Len() != 1 {
				t.Errorf("cache should be primed before Initialize, Len() = %d", v.Cache().Len())
			}
			return nil
		},
	}

	v, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if called != 1 {
		t.Errorf("Initialize called %d times, want 1", called)
	}
	if gotView != v {
		t.Error("Initialize should receive the constructed view")
	}
	if gotOpts.Collection != Source[*model](c) {
		t.Error("Initialize should receive the configured options")
	}
}

func TestNew_InitializeErrorUnsubscribes(t *testing.T) {
	rec := newRecorder()
	c := collection.New[*model]()
	_, err := New(Options[*model]{
		Collection: c,
		View:       rec.factory(),
		Initialize: func(*CollectionView[*model], Options[*model]) error { return errBoom },
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("New() error = %v, want errBoom", err)
	}
	if err := c.Add(&model{name: "late"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.built) != 0 {
		t.Errorf("views built after failed New = %d, want 0", len(rec.built))
	}
}

func TestRender_DrawsEveryItemOnce(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c", "d")
	v, _ := newView(t, rec, ms...)

	if _, err := v.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if len(rec.draws) != 4 {
		t.Fatalf("draws = %d, want 4", len(rec.draws))
	}
	for i, m := range ms {
		if rec.draws[i] != m {
			t.Errorf("draw[%d] = %s, want %s", i, rec.draws[i].name, m.name)
		}
	}
	if len(v.Cache().DirtyEntries()) != 0 {
		t.Error("no entry should be dirty after Render")
	}
}

func TestRender_ReturnsReceiverForChaining(t *testing.T) {
	v, err := New(Options[*model]{})
	if err != nil {
		t.Fatal(err)
	}

	r1, err := v.Render()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := r1.Render()
	if err != nil {
		t.Fatal(err)
	}
	r3, err := r2.Render()
	if err != nil {
		t.Fatal(err)
	}
	if r3 != v {
		t.Error("Render() should return the receiver")
	}
}

func TestRender_SecondPassDrawsNothing(t *testing.T) {
	rec := newRecorder()
	v, _ := newView(t, rec, models("a", "b")...)

	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	rec.resetDraws()
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	if len(rec.draws) != 0 {
		t.Errorf("second Render() draws = %d, want 0", len(rec.draws))
	}
}

func TestRender_FailFast(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c")
	v, _ := newView(t, rec, ms...)
	rec.failDraw[ms[1]] = errBoom

	_, err := v.Render()
	if !errors.Is(err, ErrDraw) || !errors.Is(err, errBoom) {
		t.Fatalf("Render() error = %v, want ErrDraw wrapping errBoom", err)
	}

	dirty := map[*model]bool{}
	for _, e := range v.Cache().Entries() {
		dirty[e.Item()] = e.Dirty()
	}
	if dirty[ms[0]] {
		t.Error("entry drawn before the failure should be clean")
	}
	if !dirty[ms[1]] {
		t.Error("failing entry should stay dirty")
	}
	if !dirty[ms[2]] {
		t.Error("entry after the failure should stay dirty")
	}
	if rec.drawsOf(ms[2]) != 0 {
		t.Error("entry after the failure should not be drawn")
	}

	// The next pass picks up where the failed one stopped.
	delete(rec.failDraw, ms[1])
	rec.resetDraws()
	if _, err := v.Render(); err != nil {
		t.Fatalf("retry Render() error = %v", err)
	}
	if len(rec.draws) != 2 || rec.draws[0] != ms[1] || rec.draws[1] != ms[2] {
		t.Errorf("retry draws = %v, want [b c]", rec.draws)
	}
}

func TestAdd_InsertsAndRendersOnlyNewItem(t *testing.T) {
	rec := newRecorder()
	v, c := newView(t, rec, models("a")...)
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	rec.resetDraws()

	added := &model{name: "b"}
	if err := c.Add(added); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if v.Cache().Len() != 2 {
		t.Errorf("cache Len() = %d, want 2", v.Cache().Len())
	}
	if len(rec.draws) != 1 || rec.draws[0] != added {
		t.Errorf("draws = %v, want only the added item", rec.draws)
	}
	assertBijection(t, v, c)
}

func TestRemove_TearsDownAndRenders(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c")
	v, c := newView(t, rec, ms...)

	passes := 0
	obs := &countingObserver{onPass: func() { passes++ }}
	v.observer = obs

	if err := c.Remove(ms[0]); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if v.Cache().Len() != 2 {
		t.Errorf("cache Len() = %d, want 2", v.Cache().Len())
	}
	if len(rec.removed) != 1 || rec.removed[0] != ms[0] {
		t.Errorf("teardowns = %v, want only a", rec.removed)
	}
	if passes != 1 {
		t.Errorf("render passes = %d, want 1", passes)
	}
	assertBijection(t, v, c)
}

func TestRemove_TeardownErrorReachesCaller(t *testing.T) {
	rec := newRecorder()
	ms := models("a")
	v, c := newView(t, rec, ms...)
	rec.failTeardown[ms[0]] = errBoom

	err := c.Remove(ms[0])
	if !errors.Is(err, ErrTeardown) {
		t.Fatalf("Remove() error = %v, want ErrTeardown", err)
	}
	assertBijection(t, v, c)
}

func TestChanged_RedrawsOnlyChangedItem(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c")
	v, c := newView(t, rec, ms...)
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	rec.resetDraws()

	ms[1].name = "b2"
	if err := c.Touch(ms[1]); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	if len(rec.draws) != 1 || rec.draws[0] != ms[1] {
		t.Fatalf("draws = %v, want only item #2", rec.draws)
	}
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	if len(rec.draws) != 1 {
		t.Errorf("draws after extra Render() = %d, want 1", len(rec.draws))
	}
}

func TestChanged_NeverRebuildsView(t *testing.T) {
	rec := newRecorder()
	ms := models("a")
	_, c := newView(t, rec, ms...)

	for i := 0; i < 5; i++ {
		if err := c.Touch(ms[0]); err != nil {
			t.Fatal(err)
		}
	}
	if got := rec.builtOf(ms[0]); got != 1 {
		t.Errorf("views built = %d, want 1", got)
	}
}

func TestReAdd_BuildsNewViewPerTenancy(t *testing.T) {
	rec := newRecorder()
	ms := models("a")
	_, c := newView(t, rec, ms...)

	if err := c.Remove(ms[0]); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(ms[0]); err != nil {
		t.Fatal(err)
	}
	if got := rec.builtOf(ms[0]); got != 2 {
		t.Errorf("views built across two tenancies = %d, want 2", got)
	}
}

func TestBijection_AcrossMutations(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c", "d", "e")
	v, c := newView(t, rec, ms[:2]...)

	steps := []func() error{
		func() error { return c.Add(ms[2], ms[3]) },
		func() error { return c.Remove(ms[0]) },
		func() error { return c.Add(ms[0]) },
		func() error { return c.Remove(ms[3], ms[4]) },
		func() error { return c.Add(ms[4], ms[1]) },
		func() error { return c.Remove(ms[1], ms[2]) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
		assertBijection(t, v, c)
	}
}

func TestHooks_SuppressDefaultRender(t *testing.T) {
	ms := models("a")
	tests := []struct {
		name   string
		hooks  func(calls *[]*model) Hooks[*model]
		mutate func(c *collection.Collection[*model]) (*model, error)
	}{
		{
			name: "added",
			hooks: func(calls *[]*model) Hooks[*model] {
				return Hooks[*model]{Added: func(m *model) error { *calls = append(*calls, m); return nil }}
			},
			mutate: func(c *collection.Collection[*model]) (*model, error) {
				m := &model{name: "new"}
				return m, c.Add(m)
			},
		},
		{
			name: "removed",
			hooks: func(calls *[]*model) Hooks[*model] {
				return Hooks[*model]{Removed: func(m *model) error { *calls = append(*calls, m); return nil }}
			},
			mutate: func(c *collection.Collection[*model]) (*model, error) {
				m := c.Items()[0]
				return m, c.Remove(m)
			},
		},
		{
			name: "changed",
			hooks: func(calls *[]*model) Hooks[*model] {
				return Hooks[*model]{Changed: func(m *model) error { *calls = append(*calls, m); return nil }}
			},
			mutate: func(c *collection.Collection[*model]) (*model, error) {
				m := c.Items()[0]
				return m, c.Touch(m)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			var calls []*model
			var passes int
			c := collection.New(&model{name: ms[0].name})
			v, err := New(Options[*model]{
				Collection: c,
				View:       rec.factory(),
				Hooks:      tt.hooks(&calls),
				Observer:   &countingObserver{onPass: func() { passes++ }},
			})
			if err != nil {
				t.Fatal(err)
			}

			target, err := tt.mutate(c)
			if err != nil {
				t.Fatalf("mutation error = %v", err)
			}

			if len(calls) != 1 || calls[0] != target {
				t.Errorf("hook calls = %v, want one call with the affected item", calls)
			}
			if passes != 0 {
				t.Errorf("render passes = %d, want 0", passes)
			}
			if len(rec.draws) != 0 {
				t.Errorf("draws = %d, want 0", len(rec.draws))
			}
			assertBijection(t, v, c)
		})
	}
}

func TestHooks_ErrorReachesCaller(t *testing.T) {
	c := collection.New[*model]()
	_, err := New(Options[*model]{
		Collection: c,
		Hooks:      Hooks[*model]{Added: func(*model) error { return errBoom }},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Add(&model{name: "a"}); !errors.Is(err, errBoom) {
		t.Errorf("Add() error = %v, want errBoom", err)
	}
}

func TestHooks_AddedKeepsCacheCurrent(t *testing.T) {
	rec := newRecorder()
	c := collection.New[*model]()
	var view *CollectionView[*model]
	v, err := New(Options[*model]{
		Collection: c,
		View:       rec.factory(),
		Initialize: func(v *CollectionView[*model], _ Options[*model]) error {
			view = v
			return nil
		},
		Hooks: Hooks[*model]{Added: func(m *model) error {
			e, ok := view.Cache().Lookup(m)
			if !ok || !e.Dirty() {
				t.Error("hook should see a dirty entry for the added item")
			}
			return nil
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Add(&model{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if v.Cache().Len() != 1 {
		t.Errorf("cache Len() = %d, want 1", v.Cache().Len())
	}
}

func TestExpire_RedrawsEverything(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b", "c")
	v, c := newView(t, rec, ms[:1]...)
	if err := c.Add(ms[1], ms[2]); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	rec.resetDraws()

	if err := v.Expire(); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}

	if len(rec.draws) != c.Len() {
		t.Fatalf("draws = %d, want %d", len(rec.draws), c.Len())
	}
	for _, m := range ms {
		if rec.drawsOf(m) != 1 {
			t.Errorf("draws of %s = %d, want 1", m.name, rec.drawsOf(m))
		}
	}
}

func TestExpire_RendersOncePerCall(t *testing.T) {
	v, _ := newView(t, newRecorder(), models("a")...)
	passes := 0
	v.observer = &countingObserver{onPass: func() { passes++ }}

	if err := v.Expire(); err != nil {
		t.Fatal(err)
	}
	if passes != 1 {
		t.Errorf("render passes = %d, want 1", passes)
	}
}

func TestExpireItem_RedrawsOnlyThatItem(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b")
	v, _ := newView(t, rec, ms...)
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	rec.resetDraws()

	if err := v.ExpireItem(ms[0]); err != nil {
		t.Fatalf("ExpireItem() error = %v", err)
	}
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	if len(rec.draws) != 1 || rec.draws[0] != ms[0] {
		t.Errorf("draws = %v, want only a", rec.draws)
	}
}

func TestExpireItem_UnknownIsInert(t *testing.T) {
	rec := newRecorder()
	v, _ := newView(t, rec, models("a")...)
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}
	passes := 0
	v.observer = &countingObserver{onPass: func() { passes++ }}

	if err := v.ExpireItem(&model{name: "ghost"}); err != nil {
		t.Fatalf("ExpireItem() error = %v", err)
	}
	rec.resetDraws()
	if _, err := v.Render(); err != nil {
		t.Fatal(err)
	}

	if len(rec.draws) != 0 {
		t.Errorf("draws = %d, want 0", len(rec.draws))
	}
	if passes != 2 {
		t.Errorf("render passes = %d, want 2 (ExpireItem still renders)", passes)
	}
}

func TestClose_TearsDownAndUnsubscribes(t *testing.T) {
	rec := newRecorder()
	ms := models("a", "b")
	v, c := newView(t, rec, ms...)

	if err := v.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(rec.removed) != 2 {
		t.Errorf("teardowns = %d, want 2", len(rec.removed))
	}
	if v.Cache().Len() != 0 {
		t.Errorf("cache Len() = %d, want 0", v.Cache().Len())
	}

	if err := c.Add(&model{name: "late"}); err != nil {
		t.Fatal(err)
	}
	if v.Cache().Len() != 0 {
		t.Error("closed view should ignore further notifications")
	}
	if err := v.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestObserver_ReceivesEventsAndPasses(t *testing.T) {
	obs := &countingObserver{}
	c := collection.New[*model]()
	v, err := New(Options[*model]{
		Collection: c,
		Observer:   obs,
		Hooks:      Hooks[*model]{Changed: func(*model) error { return nil }},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := &model{name: "a"}
	_ = c.Add(m)
	_ = c.Touch(m)
	_, _ = v.Render()

	if obs.events[collection.Added] != 1 || obs.events[collection.Changed] != 1 {
		t.Errorf("events = %v, want one added and one changed", obs.events)
	}
	if obs.hooked != 1 {
		t.Errorf("hooked events = %d, want 1", obs.hooked)
	}
	// One draw for the add, one for the change left dirty by the hook.
	if obs.drawn != 2 {
		t.Errorf("drawn total = %d, want 2", obs.drawn)
	}
}

type countingObserver struct {
	events map[collection.Kind]int
	hooked int
	passes int
	drawn  int
	onPass func()
}

func (o *countingObserver) EventHandled(kind collection.Kind, hooked bool) {
	if o.events == nil {
		o.events = make(map[collection.Kind]int)
	}
	o.events[kind]++
	if hooked {
		o.hooked++
	}
}

func (o *countingObserver) RenderPass(drawn int, _ time.Duration, _ error) {
	o.passes++
	o.drawn += drawn
	if o.onPass != nil {
		o.onPass()
	}
}
