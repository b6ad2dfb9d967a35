// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// PagerKeyMap defines the keybindings for the highlight pager.
type PagerKeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Actions
	Reload key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// Pager holds the default pager keybindings.
var Pager = PagerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("b", "pgup"),
		key.WithHelp("b", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("f", "pgdown", " "),
		key.WithHelp("f", "page down"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r", "ctrl+r"),
		key.WithHelp("r", "re-highlight"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp returns keybindings for the short help view.
func (k PagerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Reload, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k PagerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Top, k.Bottom},
		{k.Reload, k.Help, k.Quit},
	}
}
