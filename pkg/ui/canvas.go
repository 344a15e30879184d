package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/lod"
	"github.com/vanderheijden86/trackmap/pkg/render"
)

// The canvas works at braille resolution: every terminal cell carries a
// 2x4 dot grid, so the engine's screen space runs at MicroPerCellX times
// the column count and MicroPerCellY times the row count.
const (
	MicroPerCellX = 2
	MicroPerCellY = 4
)

// CellToScreen maps a terminal cell to the center of its micro-pixel
// block in engine screen space.
func CellToScreen(x, y int) r2.Vec {
	return r2.Vec{
		X: float64(x*MicroPerCellX) + float64(MicroPerCellX)/2,
		Y: float64(y*MicroPerCellY) + float64(MicroPerCellY)/2,
	}
}

// brailleBits maps (dx, dy) within a cell to the dot bit of the braille
// pattern block starting at U+2800.
var brailleBits = [MicroPerCellY][MicroPerCellX]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

type cell struct {
	ch      rune
	color   string
	braille uint8
}

// Canvas rasterizes a frame's primitive list into styled terminal rows.
// Edges draw as braille dots, nodes as glyphs, labels as text; later
// draws win, matching the painter's order of the primitive list.
type Canvas struct {
	cols, rows int
	cells      []cell
}

// NewCanvas creates an empty canvas of the given cell dimensions.
func NewCanvas(cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Canvas{
		cols:  cols,
		rows:  rows,
		cells: make([]cell, cols*rows),
	}
}

// Size returns the canvas dimensions in cells.
func (c *Canvas) Size() (cols, rows int) { return c.cols, c.rows }

// Clear resets all cells.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{}
	}
}

// Draw rasterizes the primitive list. Primitives are already in micro
// screen space and painter-ordered (edges, nodes, labels).
func (c *Canvas) Draw(prims []render.Primitive) {
	for _, p := range prims {
		switch p.Kind {
		case render.KindEdge:
			c.drawLine(p.Pos, p.End, p.Color)
		case render.KindNode:
			c.drawNode(p)
		case render.KindLabel:
			c.drawText(p.Pos, p.Text, p.Color)
		}
	}
}

// CellAt returns the glyph and color at a cell, resolving braille dots.
// Used by tests and the status line.
func (c *Canvas) CellAt(x, y int) (rune, string) {
	if x < 0 || x >= c.cols || y < 0 || y >= c.rows {
		return 0, ""
	}
	cl := c.cells[y*c.cols+x]
	if cl.ch != 0 {
		return cl.ch, cl.color
	}
	if cl.braille != 0 {
		return rune(0x2800 + int(cl.braille)), cl.color
	}
	return ' ', ""
}

func (c *Canvas) setDot(mx, my int, color string) {
	cx, cy := mx/MicroPerCellX, my/MicroPerCellY
	if cx < 0 || cx >= c.cols || cy < 0 || cy >= c.rows {
		return
	}
	cl := &c.cells[cy*c.cols+cx]
	// Glyphs own their cell; braille never overwrites them.
	if cl.ch != 0 {
		return
	}
	cl.braille |= brailleBits[my%MicroPerCellY][mx%MicroPerCellX]
	cl.color = color
}

func (c *Canvas) setGlyph(cx, cy int, ch rune, color string) {
	if cx < 0 || cx >= c.cols || cy < 0 || cy >= c.rows {
		return
	}
	c.cells[cy*c.cols+cx] = cell{ch: ch, color: color}
}

// drawLine rasterizes in micro space with Bresenham.
func (c *Canvas) drawLine(from, to r2.Vec, color string) {
	x0, y0 := int(from.X), int(from.Y)
	x1, y1 := int(to.X), int(to.Y)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		c.setDot(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) drawNode(p render.Primitive) {
	cx := int(p.Pos.X) / MicroPerCellX
	cy := int(p.Pos.Y) / MicroPerCellY

	ch := '●'
	if p.Tier == lod.TierSimplified {
		ch = '·'
	}
	c.setGlyph(cx, cy, ch, p.Color)
}

func (c *Canvas) drawText(pos r2.Vec, text string, color string) {
	cx := int(pos.X) / MicroPerCellX
	cy := int(pos.Y) / MicroPerCellY
	if cy < 0 || cy >= c.rows || cx >= c.cols {
		return
	}
	if cx < 0 {
		cx = 0
	}

	avail := c.cols - cx
	text = truncateCells(text, avail)

	x := cx
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x >= c.cols {
			break
		}
		c.setGlyph(x, cy, r, color)
		// Wide runes blank their second column so the row stays aligned.
		for i := 1; i < w && x+i < c.cols; i++ {
			c.setGlyph(x+i, cy, 0, "")
		}
		x += w
	}
}

// Render produces the styled rows. Runs of identical color share one
// style application to keep the output compact.
func (c *Canvas) Render(t Theme) string {
	cache := map[string]func(...string) string{}
	styled := func(color, s string) string {
		if color == "" {
			return s
		}
		fn, ok := cache[color]
		if !ok {
			st := t.Renderer.NewStyle().Foreground(ThemeFg(color))
			fn = st.Render
			cache[color] = fn
		}
		return fn(s)
	}

	var b strings.Builder
	for y := 0; y < c.rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		runColor := ""
		var run strings.Builder
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(styled(runColor, run.String()))
				run.Reset()
			}
		}
		for x := 0; x < c.cols; x++ {
			cl := c.cells[y*c.cols+x]
			// Continuation column of a wide rune.
			if cl.ch == 0 && cl.color == "" && cl.braille == 0 && x > 0 {
				prev := c.cells[y*c.cols+x-1]
				if prev.ch != 0 && runewidth.RuneWidth(prev.ch) > 1 {
					continue
				}
			}
			ch, color := c.CellAt(x, y)
			if color != runColor {
				flush()
				runColor = color
			}
			run.WriteRune(ch)
		}
		flush()
	}
	return b.String()
}

// truncateCells truncates to a visual cell width, appending an ellipsis
// when anything was cut.
func truncateCells(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
