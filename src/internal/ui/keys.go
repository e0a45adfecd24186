package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the launcher's keyboard shortcuts
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Tab      key.Binding
	Enter    key.Binding
	Escape   key.Binding
	Remember key.Binding
	Register key.Binding
	Launch   key.Binding
	Check    key.Binding
	Settings key.Binding
	Folder   key.Binding
	Refresh  key.Binding
	Logout   key.Binding
	Yes      key.Binding
	No       key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "select server")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↑/↓", "select server")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "adjust")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("←/→", "adjust")),
		Tab:      key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Remember: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "remember me")),
		Register: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create account")),
		Launch:   key.NewBinding(key.WithKeys("enter", "p"), key.WithHelp("enter", "play")),
		Check:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "check for updates")),
		Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
		Folder:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open game folder")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh servers")),
		Logout:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "logout")),
		Yes:      key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "update now")),
		No:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "later")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}
