package wizard

import "charm.land/bubbles/v2/key"

// KeyMap holds the host-level bindings. Everything else goes to the step view.
// Quit exits and keeps saved progress. Back on the first step cancels.
type KeyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Skip    key.Binding
	Dismiss key.Binding
	Retry   key.Binding
}

// DefaultKeyMap returns the wizard's bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Skip:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "skip")),
		Dismiss: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "dismiss")),
		Retry:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
	}
}
