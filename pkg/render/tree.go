// Package render converts a culled, tiered node/edge set into drawable
// primitives for whatever backend consumes them (terminal canvas, PNG,
// SVG).
//
// Build is a pure function of its inputs: identical inputs produce an
// identical primitive list, which is what makes snapshot testing of the
// render pipeline possible.
package render

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/geometry"
	"github.com/vanderheijden86/trackmap/pkg/highlight"
	"github.com/vanderheijden86/trackmap/pkg/lod"
	"github.com/vanderheijden86/trackmap/pkg/model"
)

// Kind discriminates primitive types.
type Kind int

const (
	KindEdge Kind = iota
	KindNode
	KindLabel
)

// State is the visual state of a node or edge, in precedence order:
// selected > highlighted > hovered > base.
type State int

const (
	StateBase State = iota
	StateHovered
	StateHighlighted
	StateSelected
)

// Palette maps visual state to hex colors. Kept as plain strings so every
// backend (lipgloss, gg, svgo) can parse them its own way.
type Palette struct {
	NodeBase        string
	NodeHovered     string
	NodeHighlighted string
	NodeSelected    string
	EdgeBase        string
	EdgeHighlighted string
	Label           string
}

// DefaultPalette is a dark-canvas scheme in the family the interactive
// graph exports use.
func DefaultPalette() Palette {
	return Palette{
		NodeBase:        "#6EA8FE",
		NodeHovered:     "#9AD0FF",
		NodeHighlighted: "#50FA7B",
		NodeSelected:    "#FFCF33",
		EdgeBase:        "#39424E",
		EdgeHighlighted: "#2E7D4F",
		Label:           "#EAEEF3",
	}
}

// Primitive is one drawable item in screen coordinates.
type Primitive struct {
	Kind  Kind
	ID    string // node id, edge id, or node id for labels
	State State

	// Screen-space geometry. Nodes use Pos+Radius, edges use Pos->End,
	// labels use Pos as the anchor.
	Pos    r2.Vec
	End    r2.Vec
	Radius float64
	Width  float64 // edge stroke width

	Color string
	Text  string // label text
	Tier  lod.Tier
}

// Selection is the selection state the builder needs: a primary id plus
// any multi-selected ids.
type Selection struct {
	Primary string
	IDs     map[string]bool
}

// Has reports whether id is selected (primary or multi).
func (s Selection) Has(id string) bool {
	return id != "" && (id == s.Primary || s.IDs[id])
}

// Input bundles everything Build needs. All fields are read-only.
type Input struct {
	Graph     *model.Graph
	Culled    lod.Result
	Viewport  geometry.Viewport
	Highlight highlight.Set
	Selection Selection
	HoverID   string
	Palette   Palette
}

// Build assembles the frame's primitive list: edges first (under), then
// nodes, then labels (over), each group in deterministic id order.
func Build(in Input) []Primitive {
	if in.Graph == nil {
		return nil
	}
	pal := in.Palette
	if pal == (Palette{}) {
		pal = DefaultPalette()
	}

	prims := make([]Primitive, 0, len(in.Culled.Edges)+2*in.Culled.VisibleNodeCount())

	for _, e := range in.Culled.Edges {
		src, dst := in.Graph.Node(e.Source), in.Graph.Node(e.Target)
		if src == nil || dst == nil {
			continue
		}
		state := StateBase
		color := pal.EdgeBase
		if in.Highlight.EdgeIDs[e.ID()] {
			state = StateHighlighted
			color = pal.EdgeHighlighted
		}
		prims = append(prims, Primitive{
			Kind:  KindEdge,
			ID:    e.ID(),
			State: state,
			Pos:   in.Viewport.WorldToScreen(src.Pos),
			End:   in.Viewport.WorldToScreen(dst.Pos),
			Width: edgeWidth(e.Weight),
			Color: color,
		})
	}

	appendNodes := func(ids []string, tier lod.Tier) {
		for _, id := range ids {
			n := in.Graph.Node(id)
			if n == nil {
				continue
			}
			state, color := nodeState(in, pal, id)
			prims = append(prims, Primitive{
				Kind:   KindNode,
				ID:     id,
				State:  state,
				Pos:    in.Viewport.WorldToScreen(n.Pos),
				Radius: n.Radius * in.Viewport.Zoom,
				Color:  color,
				Tier:   tier,
			})
		}
	}
	appendNodes(in.Culled.Simplified, lod.TierSimplified)
	appendNodes(in.Culled.Full, lod.TierFull)

	if in.Culled.ShowLabels {
		for _, id := range in.Culled.Full {
			n := in.Graph.Node(id)
			if n == nil || n.Track == nil {
				continue
			}
			state, _ := nodeState(in, pal, id)
			s := in.Viewport.WorldToScreen(n.Pos)
			prims = append(prims, Primitive{
				Kind:  KindLabel,
				ID:    id,
				State: state,
				Pos:   r2.Vec{X: s.X + n.Radius*in.Viewport.Zoom + 4, Y: s.Y},
				Color: pal.Label,
				Text:  labelText(n.Track),
				Tier:  lod.TierFull,
			})
		}
	}
	return prims
}

func nodeState(in Input, pal Palette, id string) (State, string) {
	switch {
	case in.Selection.Has(id):
		return StateSelected, pal.NodeSelected
	case in.Highlight.NodeIDs[id]:
		return StateHighlighted, pal.NodeHighlighted
	case id == in.HoverID:
		return StateHovered, pal.NodeHovered
	default:
		return StateBase, pal.NodeBase
	}
}

func labelText(t *model.Track) string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// edgeWidth maps weight to a stroke width in pixels, clamped to a sane range.
func edgeWidth(weight float64) float64 {
	w := 0.5 + weight
	if w < 0.5 {
		w = 0.5
	}
	if w > 4 {
		w = 4
	}
	return w
}

// Counts summarizes a primitive list for the performance overlay.
type Counts struct {
	Nodes  int
	Edges  int
	Labels int
}

// Count tallies primitives by kind.
func Count(prims []Primitive) Counts {
	var c Counts
	for _, p := range prims {
		switch p.Kind {
		case KindNode:
			c.Nodes++
		case KindEdge:
			c.Edges++
		case KindLabel:
			c.Labels++
		}
	}
	return c
}

// SortForHitOrder returns a copy sorted nodes-over-edges, larger nodes
// last, matching visual stacking. Mostly useful to backends that need a
// defined paint order beyond the Build grouping.
func SortForHitOrder(prims []Primitive) []Primitive {
	out := make([]Primitive, len(prims))
	copy(out, prims)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Kind == KindNode && out[i].Radius != out[j].Radius {
			return out[i].Radius < out[j].Radius
		}
		return out[i].ID < out[j].ID
	})
	return out
}
