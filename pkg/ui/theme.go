package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/trackmap/pkg/render"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme bundles the colors and pre-computed styles the TUI uses. Styles
// are built once at startup rather than per frame.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Node/edge state colors, kept as hex strings because the canvas and
	// the export backends both consume them.
	NodeBase        string
	NodeHovered     string
	NodeHighlighted string
	NodeSelected    string
	EdgeBase        string
	EdgeHighlighted string
	Label           string

	Background string

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	Base       lipgloss.Style
	Header     lipgloss.Style
	StatusBar  lipgloss.Style
	StatusWarn lipgloss.Style
	Overlay    lipgloss.Style
	SearchHint lipgloss.Style
}

// DefaultTheme returns the dark-canvas theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		NodeBase:        "#6EA8FE",
		NodeHovered:     "#9AD0FF",
		NodeHighlighted: "#50FA7B",
		NodeSelected:    "#FFCF33",
		EdgeBase:        "#39424E",
		EdgeHighlighted: "#2E7D4F",
		Label:           "#EAEEF3",

		Background: "#0F141A",

		Primary: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Subtext: lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:  lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = r.NewStyle().Foreground(t.Subtext)
	t.StatusWarn = r.NewStyle().Foreground(ThemeFg("#FF5555")).Bold(true)

	t.Overlay = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	t.SearchHint = r.NewStyle().Foreground(t.Subtext).Italic(true)

	return t
}

// LightTheme swaps the canvas colors for a light background.
func LightTheme(r *lipgloss.Renderer) Theme {
	t := DefaultTheme(r)
	t.NodeBase = "#1D4ED8"
	t.NodeHovered = "#2563EB"
	t.NodeHighlighted = "#15803D"
	t.NodeSelected = "#B45309"
	t.EdgeBase = "#CBD5E1"
	t.EdgeHighlighted = "#86EFAC"
	t.Label = "#1F2937"
	t.Background = "#F8FAFC"
	return t
}

// ThemeByName resolves a configured theme name, defaulting to dark.
func ThemeByName(name string, r *lipgloss.Renderer) Theme {
	if name == "light" {
		return LightTheme(r)
	}
	return DefaultTheme(r)
}

// Palette maps the theme onto the render palette so the engine colors
// primitives consistently with the frontend.
func (t Theme) Palette() render.Palette {
	return render.Palette{
		NodeBase:        t.NodeBase,
		NodeHovered:     t.NodeHovered,
		NodeHighlighted: t.NodeHighlighted,
		NodeSelected:    t.NodeSelected,
		EdgeBase:        t.EdgeBase,
		EdgeHighlighted: t.EdgeHighlighted,
		Label:           t.Label,
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
