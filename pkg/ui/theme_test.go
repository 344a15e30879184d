package ui

import (
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestThemeByName(t *testing.T) {
	r := lipgloss.NewRenderer(os.Stdout)

	dark := ThemeByName("dark", r)
	light := ThemeByName("light", r)
	if dark.Background == light.Background {
		t.Error("light and dark themes share a background")
	}

	// Unknown names fall back to the dark theme.
	fallback := ThemeByName("solarized", r)
	if fallback.Background != dark.Background {
		t.Error("unknown theme name should fall back to dark")
	}
}

func TestThemePalette(t *testing.T) {
	p := TestTheme().Palette()

	if p.NodeBase == "" || p.EdgeBase == "" || p.Label == "" {
		t.Error("palette has empty entries")
	}
	if p.NodeSelected == p.NodeBase {
		t.Error("selected nodes must be distinguishable from base nodes")
	}
	if p.NodeHighlighted == p.NodeBase {
		t.Error("highlighted nodes must be distinguishable from base nodes")
	}
}
