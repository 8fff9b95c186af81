package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smileynet/cubone/collectionview"
	"github.com/smileynet/cubone/internal/itemfile"
	"github.com/smileynet/cubone/internal/tui"
)

// sessionOptions configures a session.
type sessionOptions struct {
	Style    string
	Width    int
	Theme    string
	Logger   *zap.Logger
	Observer collectionview.Observer
	// Load reads the current item snapshot. Called on every change and reload request.
	Load func() ([]itemfile.Record, error)
}

// session owns the collection view for one board. Every method must be
// called from the goroutine running run.
type session struct {
	log    *zap.Logger
	syncer *itemfile.Syncer
	cv     *collectionview.CollectionView[*itemfile.Item]
	board  *tui.Board
	bridge *tui.Bridge
	load   func() ([]itemfile.Record, error)
}

// newSession builds the board and collection view over records.
// Nothing is drawn until the first call to render.
func newSession(records []itemfile.Record, bridge *tui.Bridge, opts sessionOptions) (*session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	board := tui.NewBoard()
	syncer := itemfile.NewSyncer(records)
	cv, err := collectionview.New(collectionview.Options[*itemfile.Item]{
		Collection: syncer.Collection(),
		View:       tui.NewFactory(board, opts.Style, opts.Width, tui.WithMarkdown(tui.NewMarkdown(opts.Theme))),
		Logger:     opts.Logger,
		Observer:   opts.Observer,
	})
	if err != nil {
		return nil, err
	}
	return &session{
		log:    opts.Logger,
		syncer: syncer,
		cv:     cv,
		board:  board,
		bridge: bridge,
		load:   opts.Load,
	}, nil
}

// render draws every dirty view and sends the first frame.
func (s *session) render(ctx context.Context) error {
	before := s.board.Draws()
	if _, err := s.cv.Render(); err != nil {
		return err
	}
	return s.send(ctx, "", s.board.Draws()-before)
}

// reload reconciles the collection with a fresh snapshot. Unreadable
// snapshots are reported as warnings and leave the board untouched.
func (s *session) reload(ctx context.Context) error {
	records, err := s.load()
	if err != nil {
		s.log.Warn("reload failed", zap.Error(err))
		return s.bridge.Send(ctx, tui.WarningMsg{Err: err})
	}

	before := s.board.Draws()
	diff, err := s.syncer.Apply(records)
	if err != nil {
		return fmt.Errorf("applying %s: %w", diff, err)
	}
	if diff.Empty() {
		s.log.Debug("reload unchanged")
		return nil
	}
	drawn := s.board.Draws() - before
	s.log.Info("reloaded",
		zap.Strings("added", diff.Added),
		zap.Strings("changed", diff.Changed),
		zap.Strings("removed", diff.Removed),
		zap.Int("drawn", drawn),
	)
	return s.send(ctx, diff.String(), drawn)
}

// expire redraws every view.
func (s *session) expire(ctx context.Context) error {
	before := s.board.Draws()
	if err := s.cv.Expire(); err != nil {
		return err
	}
	return s.send(ctx, "redraw", s.board.Draws()-before)
}

func (s *session) send(ctx context.Context, diff string, drawn int) error {
	return s.bridge.Send(ctx, tui.FrameMsg{
		Board: s.board.String(),
		Items: s.cv.Cache().Len(),
		Draws: drawn,
		Diff:  diff,
	})
}

// run serves changes, watcher errors and display requests until ctx is
// done or changes is closed. A nil channel is never selected.
func (s *session) run(ctx context.Context, changes <-chan struct{}, errs <-chan error, requests <-chan tui.Request) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := s.reload(ctx); err != nil {
				return s.stopped(ctx, err)
			}

		case err := <-errs:
			s.log.Warn("watcher error", zap.Error(err))

		case r := <-requests:
			s.log.Debug("request", zap.Stringer("request", r))
			var err error
			switch r {
			case tui.RequestExpire:
				err = s.expire(ctx)
			case tui.RequestReload:
				err = s.reload(ctx)
			}
			if err != nil {
				return s.stopped(ctx, err)
			}
		}
	}
}

// stopped hides send failures caused by ctx being done.
func (s *session) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// close tears down every view.
func (s *session) close() error {
	return s.cv.Close()
}
