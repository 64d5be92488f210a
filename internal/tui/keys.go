package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keybindings of the interactive prompts.
type keyMap struct {
	Yes    key.Binding
	No     key.Binding
	Enter  key.Binding
	Back   key.Binding
	Quit   key.Binding
	Toggle key.Binding
}

var keys = keyMap{
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("n", "cancel"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "abort"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("left", "right", "h", "l", "tab", "shift+tab"),
		key.WithHelp("←/→", "switch"),
	),
}

// confirmHelpKeyMap is shown under the confirmation prompt.
type confirmHelpKeyMap struct{}

func (confirmHelpKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Yes, keys.No, keys.Toggle, keys.Enter}
}

func (k confirmHelpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
