package collectionview

import "errors"

// model is a pointer-identity test item.
type model struct {
	name string
}

// recorder collects view lifecycle calls across every view it builds.
type recorder struct {
	built   []*model
	draws   []*model
	removed []*model

	failDraw     map[*model]error
	failTeardown map[*model]error
}

func newRecorder() *recorder {
	return &recorder{
		failDraw:     make(map[*model]error),
		failTeardown: make(map[*model]error),
	}
}

func (r *recorder) factory() Factory[*model] {
	return func(item *model) View[*model] {
		r.built = append(r.built, item)
		return &recordingView{rec: r, owner: item}
	}
}

// drawsOf counts draws recorded for item.
func (r *recorder) drawsOf(item *model) int {
	n := 0
	for _, d := range r.draws {
		if d == item {
			n++
		}
	}
	return n
}

// builtOf counts views built for item.
func (r *recorder) builtOf(item *model) int {
	n := 0
	for _, b := range r.built {
		if b == item {
			n++
		}
	}
	return n
}

func (r *recorder) resetDraws() {
	r.draws = nil
}

type recordingView struct {
	rec   *recorder
	owner *model
}

func (v *recordingView) Render(item *model) error {
	if err := v.rec.failDraw[item]; err != nil {
		return err
	}
	v.rec.draws = append(v.rec.draws, item)
	return nil
}

func (v *recordingView) Remove() error {
	v.rec.removed = append(v.rec.removed, v.owner)
	return v.rec.failTeardown[v.owner]
}

var errBoom = errors.New("boom")

func models(names ...string) []*model {
	out := make([]*model, len(names))
	for i, n := range names {
		out[i] = &model{name: n}
	}
	return out
}
