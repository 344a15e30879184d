// Package lod decides, per frame, which nodes, edges and labels are drawn
// and at what simplification tier.
//
// Tier assignment is screen-size and center-distance driven: nodes inside a
// zoom-dependent detail disk around the viewport center draw at full
// detail, the rest of the visible set draws as dots. The detail disk grows
// with zoom and always fits inside the viewport, so zooming in never
// shrinks the full-detail set while zooming out saturates at a fixed
// amount of rendered work.
package lod

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/geometry"
	"github.com/vanderheijden86/trackmap/pkg/model"
	"github.com/vanderheijden86/trackmap/pkg/spatial"
)

// Tier is a node's level of detail for the current frame.
type Tier int

const (
	// TierHidden excludes the node from the render pass entirely.
	TierHidden Tier = iota
	// TierSimplified draws a dot without label or decoration.
	TierSimplified
	// TierFull draws the node with full detail and (zoom permitting) label.
	TierFull
)

// Options tune culling behavior. Zero values select the defaults.
type Options struct {
	// ViewportMargin expands the culling rect by this many world units to
	// avoid pop-in at the edges while panning.
	ViewportMargin float64
	// LabelZoomThreshold is the minimum zoom at which labels render,
	// independent of node tier.
	LabelZoomThreshold float64
	// MaxRenderNodes caps the number of nodes drawn per frame. When the
	// visible set is larger, the largest nodes win (deterministically).
	MaxRenderNodes int
	// MaxRenderEdges caps the number of edges drawn per frame.
	MaxRenderEdges int

	ShowEdges  bool
	ShowLabels bool
}

const (
	defaultMargin         = 50.0
	defaultLabelThreshold = 0.8
	defaultMaxNodes       = 2000
	defaultMaxEdges       = 4000
)

func (o Options) withDefaults() Options {
	if o.ViewportMargin <= 0 {
		o.ViewportMargin = defaultMargin
	}
	if o.LabelZoomThreshold <= 0 {
		o.LabelZoomThreshold = defaultLabelThreshold
	}
	if o.MaxRenderNodes <= 0 {
		o.MaxRenderNodes = defaultMaxNodes
	}
	if o.MaxRenderEdges <= 0 {
		o.MaxRenderEdges = defaultMaxEdges
	}
	return o
}

// Result is the tiered draw list for one frame.
type Result struct {
	Full       []string // node ids at full detail, id-sorted
	Simplified []string // node ids drawn as dots, id-sorted
	Edges      []model.Edge
	// ShowLabels is true when the zoom threshold and the global toggle both
	// allow labels this frame.
	ShowLabels bool
	// Truncated is true when the saturation cap dropped nodes or edges.
	Truncated bool
}

// VisibleNodeCount returns the number of nodes drawn this frame.
func (r Result) VisibleNodeCount() int { return len(r.Full) + len(r.Simplified) }

// Tier returns the tier assigned to the given node id.
func (r Result) Tier(id string) Tier {
	if contains(r.Full, id) {
		return TierFull
	}
	if contains(r.Simplified, id) {
		return TierSimplified
	}
	return TierHidden
}

func contains(sorted []string, id string) bool {
	i := sort.SearchStrings(sorted, id)
	return i < len(sorted) && sorted[i] == id
}

// DetailWorldRadius returns the radius, in world units, of the full-detail
// disk around the viewport center. Proportional to zoom and bounded by the
// viewport inradius at maximum zoom, so the disk never outgrows the screen
// and grows monotonically as the user zooms in.
func DetailWorldRadius(v geometry.Viewport) float64 {
	zoomMax := v.ZoomMax
	if zoomMax <= 0 {
		zoomMax = geometry.DefaultZoomMax
	}
	minDim := math.Min(v.ScreenW, v.ScreenH)
	return minDim * v.Zoom / (2 * zoomMax * zoomMax)
}

// Cull computes the tiered draw list for the current viewport.
func Cull(v geometry.Viewport, idx *spatial.Index, g *model.Graph, opts Options) Result {
	opts = opts.withDefaults()
	res := Result{
		ShowLabels: opts.ShowLabels && v.Zoom >= opts.LabelZoomThreshold,
	}
	if g == nil || g.Len() == 0 || idx == nil {
		return res
	}

	rect := v.WorldRect().Expand(opts.ViewportMargin / math.Max(v.Zoom, 1e-9))
	visible := idx.Query(rect)
	if len(visible) == 0 {
		return res
	}

	// Saturation cap: when zoomed far out the visible set can exceed what a
	// frame budget tolerates. Keep the largest nodes, ties by id, so the
	// subset is stable across frames.
	if len(visible) > opts.MaxRenderNodes {
		sort.Slice(visible, func(i, j int) bool {
			ni, nj := g.Node(visible[i]), g.Node(visible[j])
			if ni.Radius != nj.Radius {
				return ni.Radius > nj.Radius
			}
			return ni.ID < nj.ID
		})
		visible = visible[:opts.MaxRenderNodes]
		sort.Strings(visible)
		res.Truncated = true
	}

	center := v.Center()
	detailR := DetailWorldRadius(v)

	for _, id := range visible {
		n := g.Node(id)
		if n == nil {
			continue
		}
		d := math.Hypot(n.Pos.X-center.X, n.Pos.Y-center.Y)
		if d <= detailR {
			res.Full = append(res.Full, id)
		} else {
			res.Simplified = append(res.Simplified, id)
		}
	}
	// visible was id-sorted, so both tier slices already are.

	if opts.ShowEdges {
		res.Edges = cullEdges(g, res, opts.MaxRenderEdges)
		if len(res.Edges) < countEligibleEdges(g, res) {
			res.Truncated = true
		}
	}
	return res
}

// cullEdges keeps edges whose endpoints are both drawn this frame, up to
// the cap. Heavier edges win when the cap bites.
func cullEdges(g *model.Graph, res Result, maxEdges int) []model.Edge {
	drawn := func(id string) bool {
		return contains(res.Full, id) || contains(res.Simplified, id)
	}
	eligible := make([]model.Edge, 0, maxEdges)
	for _, e := range g.Edges() {
		if drawn(e.Source) && drawn(e.Target) {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) > maxEdges {
		sort.Slice(eligible, func(i, j int) bool {
			if eligible[i].Weight != eligible[j].Weight {
				return eligible[i].Weight > eligible[j].Weight
			}
			return eligible[i].ID() < eligible[j].ID()
		})
		eligible = eligible[:maxEdges]
	}
	// Deterministic draw order.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID() < eligible[j].ID() })
	return eligible
}

func countEligibleEdges(g *model.Graph, res Result) int {
	count := 0
	for _, e := range g.Edges() {
		if (contains(res.Full, e.Source) || contains(res.Simplified, e.Source)) &&
			(contains(res.Full, e.Target) || contains(res.Simplified, e.Target)) {
			count++
		}
	}
	return count
}

// CenterDistance is a helper for tests and overlays: world distance from
// the node to the viewport center.
func CenterDistance(v geometry.Viewport, pos r2.Vec) float64 {
	c := v.Center()
	return math.Hypot(pos.X-c.X, pos.Y-c.Y)
}
