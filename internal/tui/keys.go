package tui

import "github.com/charmbracelet/bubbles/key"

// boardKeys holds key bindings for the board view.
type boardKeys struct {
	Up     key.Binding
	Down   key.Binding
	Expire key.Binding
	Reload key.Binding
	Quit   key.Binding
}

// ShortHelp returns the board bindings for the help bar.
func (k boardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Expire, k.Reload, k.Quit}
}

// FullHelp returns the board bindings grouped for expanded help.
func (k boardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Expire, k.Reload, k.Quit},
	}
}

// BoardKeyMap returns the key bindings for the board view.
func BoardKeyMap() boardKeys {
	return boardKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Expire: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "redraw all"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
