// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Connect     key.Binding
	Record      key.Binding
	Peak        key.Binding
	Spectrogram key.Binding
	MinDown     key.Binding
	MinUp       key.Binding
	MaxDown     key.Binding
	MaxUp       key.Binding
	Reset       key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Connect:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect/disconnect")),
		Record:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record/save")),
		Peak:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "peak tuning")),
		Spectrogram: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "spectrogram")),
		MinDown:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "lower min")),
		MinUp:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "raise min")),
		MaxDown:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "lower max")),
		MaxUp:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "raise max")),
		Reset:       key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset window")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Record, k.Peak, k.Spectrogram, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Connect, k.Record, k.Peak, k.Spectrogram},
		{k.MinDown, k.MinUp, k.MaxDown, k.MaxUp, k.Reset},
		{k.Help, k.Quit},
	}
}
