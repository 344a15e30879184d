// Package export renders static snapshots of the current viewport. PNG
// goes through gg, SVG through svgo. Both backends consume the same
// screen-space primitive list the interactive frontend draws, so an
// exported image matches the on-screen frame exactly.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/trackmap/pkg/engine"
	"github.com/vanderheijden86/trackmap/pkg/geometry"
	"github.com/vanderheijden86/trackmap/pkg/metrics"
	"github.com/vanderheijden86/trackmap/pkg/model"
	"github.com/vanderheijden86/trackmap/pkg/render"
)

// Scene is a frame flattened for export: the primitive list plus the
// counters the summary block shows.
type Scene struct {
	Primitives []render.Primitive
	Width      int
	Height     int
	Zoom       float64
	NodeTotal  int
	EdgeTotal  int
	Truncated  bool
}

// FromFrame builds a Scene from an engine frame and the viewport it was
// rendered with.
func FromFrame(f engine.Frame, v geometry.Viewport, g *model.Graph) Scene {
	s := Scene{
		Primitives: f.Primitives,
		Width:      int(v.ScreenW),
		Height:     int(v.ScreenH),
		Zoom:       v.Zoom,
		Truncated:  f.Culled.Truncated,
	}
	if g != nil {
		s.NodeTotal = g.Len()
		s.EdgeTotal = len(g.Edges())
	}
	return s
}

// Options controls snapshot output.
type Options struct {
	Path       string
	Format     string // "svg" or "png"; inferred from Path when empty
	Title      string
	Background string // hex color, defaults to the dark canvas backdrop
}

const defaultBackground = "#0F141A"

// Save writes the scene to disk in the requested format.
func Save(scene Scene, opts Options) error {
	defer metrics.Timer(metrics.ExportRender)()

	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	opts.Path = EnsureExtension(opts.Path, format)

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch format {
	case "png":
		return renderPNG(scene, opts)
	default:
		f, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		return RenderSVG(f, scene, opts)
	}
}

// EnsureExtension appends the format's extension when the path carries
// none or a different one for the other format.
func EnsureExtension(path, format string) string {
	ext := strings.ToLower(filepath.Ext(path))
	want := "." + format
	if ext == want {
		return path
	}
	if ext == ".svg" || ext == ".png" {
		return strings.TrimSuffix(path, filepath.Ext(path)) + want
	}
	return path + want
}

func renderPNG(scene Scene, opts Options) error {
	w, h := canvasSize(scene)
	dc := gg.NewContext(w, h)
	dc.SetColor(parseHex(background(opts)))
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for _, p := range scene.Primitives {
		switch p.Kind {
		case render.KindEdge:
			dc.SetColor(parseHex(p.Color))
			dc.SetLineWidth(p.Width)
			dc.DrawLine(p.Pos.X, p.Pos.Y, p.End.X, p.End.Y)
			dc.Stroke()
		case render.KindNode:
			dc.SetColor(parseHex(p.Color))
			dc.DrawCircle(p.Pos.X, p.Pos.Y, math.Max(p.Radius, 1))
			dc.Fill()
		case render.KindLabel:
			dc.SetColor(parseHex(p.Color))
			dc.DrawStringAnchored(p.Text, p.Pos.X, p.Pos.Y, 0, 0.5)
		}
	}

	drawSummaryPNG(dc, scene, opts)

	return dc.SavePNG(opts.Path)
}

// RenderSVG writes the scene as SVG. Exported separately so callers can
// stream to any writer.
func RenderSVG(w io.Writer, scene Scene, opts Options) error {
	width, height := canvasSize(scene)
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+background(opts))

	for _, p := range scene.Primitives {
		switch p.Kind {
		case render.KindEdge:
			canvas.Line(round(p.Pos.X), round(p.Pos.Y), round(p.End.X), round(p.End.Y),
				fmt.Sprintf("stroke:%s;stroke-width:%s", p.Color, trimFloat(p.Width)))
		case render.KindNode:
			r := round(math.Max(p.Radius, 1))
			canvas.Circle(round(p.Pos.X), round(p.Pos.Y), r, "fill:"+p.Color)
		case render.KindLabel:
			canvas.Text(round(p.Pos.X), round(p.Pos.Y), p.Text,
				fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", p.Color))
		}
	}

	drawSummarySVG(canvas, scene, opts)

	canvas.End()
	return nil
}

func canvasSize(scene Scene) (int, int) {
	w, h := scene.Width, scene.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 600
	}
	return w, h
}

func background(opts Options) string {
	if opts.Background != "" {
		return opts.Background
	}
	return defaultBackground
}

func summaryLine(scene Scene) string {
	counts := render.Count(scene.Primitives)
	line := fmt.Sprintf("nodes %d/%d  edges %d/%d  zoom %.2f",
		counts.Nodes, scene.NodeTotal, counts.Edges, scene.EdgeTotal, scene.Zoom)
	if scene.Truncated {
		line += "  (truncated)"
	}
	return line
}

func drawSummaryPNG(dc *gg.Context, scene Scene, opts Options) {
	dc.SetColor(parseHex("#EAEEF3"))
	y := 18.0
	if opts.Title != "" {
		dc.DrawStringAnchored(opts.Title, 12, y, 0, 0.5)
		y += 16
	}
	dc.SetColor(parseHex("#8A94A3"))
	dc.DrawStringAnchored(summaryLine(scene), 12, y, 0, 0.5)
}

func drawSummarySVG(canvas *svg.SVG, scene Scene, opts Options) {
	y := 20
	if opts.Title != "" {
		canvas.Text(12, y, opts.Title,
			"fill:#EAEEF3;font-size:14px;font-family:monospace;font-weight:bold")
		y += 18
	}
	canvas.Text(12, y, summaryLine(scene),
		"fill:#8A94A3;font-size:12px;font-family:monospace")
}

func round(f float64) int {
	return int(math.Round(f))
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseHex parses "#RRGGBB"; anything unparseable falls back to white so
// a bad palette entry degrades visibly instead of erroring mid-export.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}
}
