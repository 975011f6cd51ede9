package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	// Library
	Up        key.Binding
	Down      key.Binding
	Home      key.Binding
	End       key.Binding
	Open      key.Binding
	NewFolder key.Binding
	Import    key.Binding
	Move      key.Binding
	Reset     key.Binding
	Delete    key.Binding
	Stats     key.Binding

	// Study
	Flip      key.Binding
	Knew      key.Binding
	DidntKnow key.Binding
	Previous  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end", "bottom"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "study"),
		),
		NewFolder: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new folder"),
		),
		Import: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "import file"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move deck"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset deck"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "statistics"),
		),

		Flip: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "flip"),
		),
		Knew: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "knew it"),
		),
		DidntKnow: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "didn't know"),
		),
		Previous: key.NewBinding(
			key.WithKeys("backspace", "p"),
			key.WithHelp("p", "previous"),
		),
	}
}

// libraryHelp adapts the key map to help.KeyMap for the library footer.
type libraryHelp struct{ k KeyMap }

func (h libraryHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Open, h.k.Import, h.k.NewFolder, h.k.Move, h.k.Reset, h.k.Delete, h.k.Stats, h.k.Help, h.k.Quit}
}

func (h libraryHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{h.k.Up, h.k.Down, h.k.Home, h.k.End, h.k.Open},
		{h.k.Import, h.k.NewFolder, h.k.Move, h.k.Reset, h.k.Delete, h.k.Stats},
		{h.k.Help, h.k.Quit, h.k.ForceQuit},
	}
}

// studyHelp adapts the key map to help.KeyMap for the study footer.
type studyHelp struct{ k KeyMap }

func (h studyHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Flip, h.k.Knew, h.k.DidntKnow, h.k.Previous, h.k.Escape, h.k.Help}
}

func (h studyHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{h.k.Flip, h.k.Knew, h.k.DidntKnow, h.k.Previous},
		{h.k.Reset, h.k.Escape, h.k.Help, h.k.ForceQuit},
	}
}
