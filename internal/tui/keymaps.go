package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the keys of the update dialog.
type keyMap struct {
	Pause   key.Binding
	Resume  key.Binding
	Cancel  key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Resume, k.Cancel, k.Confirm, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Resume, k.Cancel},
		{k.Confirm, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		Cancel:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "install/retry")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// forView enables only the bindings that do something on the current screen.
func (k keyMap) forView(v currentView) keyMap {
	downloading := v == viewProgress
	k.Pause.SetEnabled(downloading)
	k.Resume.SetEnabled(downloading)
	k.Cancel.SetEnabled(downloading)
	k.Confirm.SetEnabled(v == viewConfirm || v == viewError)

	return k
}
