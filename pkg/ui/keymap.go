package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Search       key.Binding
	ClearSearch  key.Binding
	ToggleEdges  key.Binding
	ToggleLabels key.Binding
	Fit          key.Binding
	Copy         key.Binding
	Overlay      key.Binding
	Snapshot     key.Binding
	Help         key.Binding
	Clear        key.Binding
	ZoomIn       key.Binding
	ZoomOut      key.Binding
	PanUp        key.Binding
	PanDown      key.Binding
	PanLeft      key.Binding
	PanRight     key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ClearSearch: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear search/selection"),
		),
		ToggleEdges: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle edges"),
		),
		ToggleLabels: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle labels"),
		),
		Fit: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fit graph"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy track id"),
		),
		Overlay: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "perf overlay"),
		),
		Snapshot: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save snapshot"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear selection"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		PanUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "pan up"),
		),
		PanDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "pan down"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "pan left"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "pan right"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Fit, k.ToggleEdges, k.ToggleLabels, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.ClearSearch, k.Clear, k.Copy},
		{k.Fit, k.ZoomIn, k.ZoomOut, k.PanUp, k.PanDown},
		{k.ToggleEdges, k.ToggleLabels, k.Overlay, k.Snapshot},
		{k.Help, k.Quit},
	}
}
