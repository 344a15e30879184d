package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# trackmap

An interactive map of a track library. Nodes are tracks, edges are
mix-compatibility relationships. Click a node to select it and the
camera glides over; start typing after ` + "`/`" + ` to highlight matches.

## Mouse

| Action | Effect |
|---|---|
| Click node | Select it and center the camera |
| Ctrl/Shift click | Add or remove from the selection |
| Click empty space | Clear the selection |
| Drag | Pan the viewport |
| Wheel | Zoom towards the cursor |

## Keys

| Key | Effect |
|---|---|
| ` + "`/`" + ` | Search (fuzzy over title, artist, key) |
| ` + "`esc`" + ` | Leave search, then clear selection |
| ` + "`c`" + ` | Clear selection |
| ` + "`y`" + ` | Copy selected track id |
| ` + "`f`" + ` | Fit the whole graph |
| ` + "`+` / `-`" + ` | Zoom at center |
| arrows | Pan |
| ` + "`e` / `l`" + ` | Toggle edges / labels |
| ` + "`p`" + ` | Performance overlay |
| ` + "`s`" + ` | Save an SVG snapshot |
| ` + "`q`" + ` | Quit |

Labels appear once you zoom past the label threshold. Very dense views
drop to simplified dots; zoom in for detail.
`

// helpView caches the glamour rendering of the help markdown and scrolls
// it.
type helpView struct {
	rendered []string
	width    int
	offset   int
}

func (h *helpView) render(width int) {
	if width == h.width && h.rendered != nil {
		return
	}
	h.width = width

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	content := helpMarkdown
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		if out, rerr := r.Render(helpMarkdown); rerr == nil {
			content = out
		}
	}
	h.rendered = compressBlankRuns(strings.Split(strings.TrimRight(content, "\n"), "\n"))
	h.offset = 0
}

func (h *helpView) scroll(delta, visible int) {
	h.offset += delta
	max := len(h.rendered) - visible
	if max < 0 {
		max = 0
	}
	if h.offset > max {
		h.offset = max
	}
	if h.offset < 0 {
		h.offset = 0
	}
}

func (h *helpView) view(width, height int) string {
	h.render(width)

	visible := height
	if visible < 1 {
		visible = 1
	}
	end := h.offset + visible
	if end > len(h.rendered) {
		end = len(h.rendered)
	}
	lines := h.rendered[h.offset:end]

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	for i := len(lines); i < visible; i++ {
		b.WriteByte('\n')
	}
	return b.String()
}

// compressBlankRuns collapses runs of 3+ blank lines to 2; glamour
// sometimes pads tables generously.
func compressBlankRuns(lines []string) []string {
	out := lines[:0]
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return out
}
