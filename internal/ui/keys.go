package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the TUI
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Target  key.Binding
	Hotkey  key.Binding
	Trigger key.Binding
	Pause   key.Binding
	Refresh key.Binding
	Search  key.Binding
	Quit    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// keys is the default set of key bindings
var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Target: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "set target"),
	),
	Hotkey: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "set hotkey"),
	),
	Trigger: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "break now"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}
