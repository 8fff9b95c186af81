package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Request is an action the user asks the engine owner to perform.
type Request int

const (
	// RequestExpire asks for every view to be redrawn.
	RequestExpire Request = iota
	// RequestReload asks for the item file to be read again.
	RequestReload
)

// String returns the request name.
func (r Request) String() string {
	switch r {
	case RequestExpire:
		return "expire"
	case RequestReload:
		return "reload"
	default:
		return fmt.Sprintf("Request(%d)", int(r))
	}
}

// FrameMsg carries one rendered board to the display.
type FrameMsg struct {
	Board string // Joined slot contents
	Items int    // Items in the collection
	Draws int    // Views drawn by the pass that produced this frame
	Diff  string // Reconciliation summary, empty for the initial frame
}

// WarningMsg reports a non-fatal error, such as an unreadable edit.
type WarningMsg struct {
	Err error
}

// DoneMsg signals that no more frames will follow.
type DoneMsg struct{}

// ErrorMsg signals a fatal error. No more frames will follow.
type ErrorMsg struct {
	Err error
}

// Model is the Bubble Tea model for the item board.
type Model struct {
	keys       boardKeys
	help       help.Model
	viewport   viewport.Model
	frame      FrameMsg
	frames     int
	warning    error
	width      int
	done       bool
	err        error
	requestFn  func(Request)
	cancelFunc context.CancelFunc
}

// ModelOption configures optional Model behavior.
type ModelOption func(*Model)

// WithRequestFunc sets the callback that receives expire and reload requests.
func WithRequestFunc(fn func(Request)) ModelOption {
	return func(m *Model) {
		m.requestFn = fn
	}
}

// WithCancelFunc sets the function called when the user quits.
func WithCancelFunc(fn context.CancelFunc) ModelOption {
	return func(m *Model) {
		m.cancelFunc = fn
	}
}

// NewModel creates an empty board model.
func NewModel(opts ...ModelOption) Model {
	m := Model{
		keys:     BoardKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		width:    80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init does nothing; frames arrive as messages.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.frame = msg
		m.frames++
		m.warning = nil
		m.viewport.SetContent(msg.Board)
		return m, nil

	case WarningMsg:
		m.warning = msg.Err
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		// Status line and help bar take three rows.
		m.viewport.Height = max(msg.Height-3, 1)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.done = true
			if m.cancelFunc != nil {
				m.cancelFunc()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Expire):
			m.request(RequestExpire)
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			m.request(RequestReload)
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) request(r Request) {
	if m.requestFn != nil {
		m.requestFn(r)
	}
}

// View renders the board, a status line and the help bar.
func (m Model) View() string {
	s := m.viewport.View() + "\n"
	s += headStyle.Render(m.status()) + "\n"
	if m.warning != nil {
		s += warnStyle.Render("  warning: "+m.warning.Error()) + "\n"
	}
	if m.done && m.err != nil {
		s += fmt.Sprintf("\n  Error: %s\n", m.err)
		return s
	}
	s += m.help.View(m.keys)
	return s
}

func (m Model) status() string {
	if m.frames == 0 {
		return "  waiting for items…"
	}
	s := fmt.Sprintf("  %d items · %d drawn", m.frame.Items, m.frame.Draws)
	if m.frame.Diff != "" {
		s += " · " + m.frame.Diff
	}
	return s
}
