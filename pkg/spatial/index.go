// Package spatial provides a uniform-grid index over node positions for
// viewport culling and pointer hit-testing.
//
// An Index is immutable once built. Dataset changes are handled by
// building a fresh index and swapping the reference atomically (the engine
// owns the swap), so queries never observe a partially-built structure.
package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/geometry"
	"github.com/vanderheijden86/trackmap/pkg/model"
)

// defaultCellDivisor sizes grid cells so the longer world axis spans about
// this many cells. Coarse enough to keep the cell map small, fine enough
// that a viewport query touches a bounded neighborhood.
const defaultCellDivisor = 64

type cellKey struct{ cx, cy int }

// Index is a uniform grid over node bounding circles.
type Index struct {
	nodes    []model.Node
	cells    map[cellKey][]int32 // cell -> indices into nodes
	cellSize float64
	origin   r2.Vec
	maxR     float64 // largest node radius, pads neighborhood scans
}

// Build constructs an index over the given nodes. O(n) inserts plus a
// per-cell sort for deterministic iteration order.
func Build(nodes []model.Node) *Index {
	idx := &Index{
		nodes: nodes,
		cells: make(map[cellKey][]int32),
	}
	if len(nodes) == 0 {
		idx.cellSize = 1
		return idx
	}

	min := nodes[0].Pos
	max := nodes[0].Pos
	for _, n := range nodes {
		min.X = math.Min(min.X, n.Pos.X)
		min.Y = math.Min(min.Y, n.Pos.Y)
		max.X = math.Max(max.X, n.Pos.X)
		max.Y = math.Max(max.Y, n.Pos.Y)
		idx.maxR = math.Max(idx.maxR, n.Radius)
	}
	span := math.Max(max.X-min.X, max.Y-min.Y)
	idx.cellSize = span / defaultCellDivisor
	if idx.cellSize <= 0 || !finite(idx.cellSize) {
		idx.cellSize = 1
	}
	idx.origin = min

	for i, n := range nodes {
		k := idx.keyFor(n.Pos)
		idx.cells[k] = append(idx.cells[k], int32(i))
	}

	// Sort bucket contents by id so scans are deterministic regardless of
	// input order.
	for k, bucket := range idx.cells {
		sort.Slice(bucket, func(a, b int) bool {
			return nodes[bucket[a]].ID < nodes[bucket[b]].ID
		})
		idx.cells[k] = bucket
	}
	return idx
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.nodes)
}

func (idx *Index) keyFor(p r2.Vec) cellKey {
	return cellKey{
		cx: int(math.Floor((p.X - idx.origin.X) / idx.cellSize)),
		cy: int(math.Floor((p.Y - idx.origin.Y) / idx.cellSize)),
	}
}

// Query returns the ids of all nodes whose bounding circle intersects the
// world rectangle, in id order.
func (idx *Index) Query(r geometry.Rect) []string {
	if idx == nil || len(idx.nodes) == 0 {
		return nil
	}
	// Pad by the largest radius: a node's center may sit one cell outside
	// the rect while its circle still intersects it.
	padded := r.Expand(idx.maxR)
	lo := idx.keyFor(padded.Min)
	hi := idx.keyFor(padded.Max)

	var out []string
	for cy := lo.cy; cy <= hi.cy; cy++ {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			for _, i := range idx.cells[cellKey{cx, cy}] {
				n := &idx.nodes[i]
				if r.IntersectsCircle(n.Pos, n.Radius) {
					out = append(out, n.ID)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// Nearest returns the id of the node closest to the world point, searching
// no further than maxRadius from the point to the node's edge. Ties are
// broken by smaller distance, then by smaller id, so repeated calls with
// equidistant candidates always resolve identically. Returns "" when
// nothing is in range.
func (idx *Index) Nearest(p r2.Vec, maxRadius float64) string {
	if idx == nil || len(idx.nodes) == 0 || maxRadius < 0 || !finite(maxRadius) {
		return ""
	}
	if !finite(p.X) || !finite(p.Y) {
		return ""
	}

	// A node qualifies when the point is within maxRadius of its bounding
	// circle, i.e. dist(center) <= maxRadius + node.Radius.
	reach := maxRadius + idx.maxR
	cellsOut := int(math.Ceil(reach/idx.cellSize)) + 1
	center := idx.keyFor(p)

	bestID := ""
	bestDist := math.Inf(1)

	consider := func(i int32) {
		n := &idx.nodes[i]
		d := math.Hypot(n.Pos.X-p.X, n.Pos.Y-p.Y) - n.Radius
		if d < 0 {
			d = 0 // inside the node
		}
		if d > maxRadius {
			return
		}
		if d < bestDist || (d == bestDist && n.ID < bestID) {
			bestDist = d
			bestID = n.ID
		}
	}

	// Ring scan outward from the point's cell. Stops once a full ring lies
	// beyond the best distance found so far.
	for ring := 0; ring <= cellsOut; ring++ {
		if bestID != "" {
			// Closest possible node in this ring is (ring-1) cells away.
			ringMin := float64(ring-1) * idx.cellSize
			if ringMin > bestDist+idx.maxR {
				break
			}
		}
		for _, k := range ringCells(center, ring) {
			for _, i := range idx.cells[k] {
				consider(i)
			}
		}
	}
	return bestID
}

// ringCells enumerates the cells at Chebyshev distance ring from c.
func ringCells(c cellKey, ring int) []cellKey {
	if ring == 0 {
		return []cellKey{c}
	}
	cells := make([]cellKey, 0, 8*ring)
	for dx := -ring; dx <= ring; dx++ {
		cells = append(cells,
			cellKey{c.cx + dx, c.cy - ring},
			cellKey{c.cx + dx, c.cy + ring})
	}
	for dy := -ring + 1; dy <= ring-1; dy++ {
		cells = append(cells,
			cellKey{c.cx - ring, c.cy + dy},
			cellKey{c.cx + ring, c.cy + dy})
	}
	return cells
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
