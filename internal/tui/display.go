package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// DisplayEvent is an event sent to a Display via the event channel.
// Implemented by FrameMsg, WarningMsg, DoneMsg, and ErrorMsg.
type DisplayEvent interface {
	isDisplayEvent()
}

func (FrameMsg) isDisplayEvent()   {}
func (WarningMsg) isDisplayEvent() {}
func (DoneMsg) isDisplayEvent()    {}
func (ErrorMsg) isDisplayEvent()   {}

// Verify at compile time that message types implement DisplayEvent.
var (
	_ DisplayEvent = FrameMsg{}
	_ DisplayEvent = WarningMsg{}
	_ DisplayEvent = DoneMsg{}
	_ DisplayEvent = ErrorMsg{}
)

// Display shows board frames.
type Display interface {
	Run(ctx context.Context, events <-chan DisplayEvent) error
}

// DisplayOptions configures display creation.
type DisplayOptions struct {
	Writer     io.Writer          // Output destination (default: os.Stdout).
	ForcePlain bool               // Force plain text even if TTY.
	Requests   func(Request)      // Receives key requests (ignored by PlainDisplay).
	CancelFunc context.CancelFunc // Called by TUI on quit keypress (ignored by PlainDisplay).
}

// NewDisplay returns a TUI display when stdout is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func NewDisplay(opts DisplayOptions) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	if opts.ForcePlain || !isTTY(opts.Writer) {
		return &PlainDisplay{w: opts.Writer}
	}

	return &TUIDisplay{w: opts.Writer, requests: opts.Requests, cancelFunc: opts.CancelFunc}
}

// isTTY reports whether w is connected to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Bridge manages the channel between the engine owner and a Display consumer.
type Bridge struct {
	ch chan DisplayEvent
}

// NewBridge creates a Bridge with a buffered event channel.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan DisplayEvent, 16)}
}

// Events returns the read-only channel for Display.Run() to consume.
func (b *Bridge) Events() <-chan DisplayEvent {
	return b.ch
}

// Send delivers a frame or warning to the display. It blocks while the
// buffer (16) is full and gives up when ctx is done.
func (b *Bridge) Send(ctx context.Context, ev DisplayEvent) error {
	select {
	case b.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done signals that no more frames will follow and closes the channel.
func (b *Bridge) Done() {
	b.ch <- DoneMsg{}
	close(b.ch)
}

// Error signals a fatal error and closes the channel.
func (b *Bridge) Error(err error) {
	b.ch <- ErrorMsg{Err: err}
	close(b.ch)
}

// PlainDisplay prints each frame as text.
type PlainDisplay struct {
	w io.Writer
}

// Run loops over events, printing every frame.
// Returns the fatal error if one was sent, or context error if cancelled.
func (d *PlainDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch msg := ev.(type) {
			case FrameMsg:
				d.renderFrame(msg)
			case WarningMsg:
				_, _ = fmt.Fprintf(d.w, "warning: %v\n", msg.Err)
			case DoneMsg:
				return nil
			case ErrorMsg:
				return msg.Err
			}
		}
	}
}

func (d *PlainDisplay) renderFrame(f FrameMsg) {
	if f.Diff != "" {
		ts := time.Now().Format("15:04:05")
		_, _ = fmt.Fprintf(d.w, "[%s] %s (%d drawn)\n", ts, f.Diff, f.Draws)
	}
	if f.Board != "" {
		_, _ = fmt.Fprintln(d.w, f.Board)
	}
	_, _ = fmt.Fprintf(d.w, "%d items\n", f.Items)
}

// TUIDisplay shows frames using a Bubble Tea terminal UI.
// Falls back to PlainDisplay if the TUI program fails to start.
type TUIDisplay struct {
	w          io.Writer
	requests   func(Request)
	cancelFunc context.CancelFunc
}

// Run starts the Bubble Tea program and feeds events from the channel.
// If the TUI fails to initialize, it falls back to plain text output.
func (d *TUIDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	var opts []ModelOption
	if d.requests != nil {
		opts = append(opts, WithRequestFunc(d.requests))
	}
	if d.cancelFunc != nil {
		opts = append(opts, WithCancelFunc(d.cancelFunc))
	}
	p := tea.NewProgram(NewModel(opts...), tea.WithOutput(d.w), tea.WithContext(ctx), tea.WithAltScreen())

	// Forward events through an intermediate channel so we can stop
	// the goroutine cleanly on TUI failure before falling back.
	fwd := make(chan DisplayEvent, 16)
	stop := make(chan struct{})

	go func() {
		defer close(fwd)
		for ev := range events {
			select {
			case fwd <- ev:
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for ev := range fwd {
			p.Send(ev)
		}
	}()

	final, err := p.Run()
	if err != nil {
		close(stop)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Fall back to plain text for remaining events from the original channel.
		plain := &PlainDisplay{w: d.w}
		return plain.Run(ctx, events)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
