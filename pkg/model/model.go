// Package model defines the core data types for trackmap: tracks, the
// graph nodes that place them on the 2D canvas, and the harmonic/energy
// edges connecting them.
//
// Node positions are world coordinates produced by an external layout
// pass; nothing in this repository moves a node after load.
package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// CamelotKey is a harmonic key in Camelot wheel notation ("8A", "12B", ...).
type CamelotKey string

// Track is the externally-owned music metadata a node points at.
type Track struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Artist string     `json:"artist"`
	BPM    float64    `json:"bpm,omitempty"`
	Key    CamelotKey `json:"key,omitempty"`
	Energy float64    `json:"energy,omitempty"` // 0..1
}

// Node places a track on the canvas. Position is immutable after layout.
type Node struct {
	ID     string  `json:"id"`
	Pos    r2.Vec  `json:"pos"`
	Radius float64 `json:"radius"` // render size, scales with degree/priority
	Track  *Track  `json:"-"`
}

// Edge connects two nodes. Undirected for rendering purposes even when the
// harmonic relationship is directional.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"` // affects stroke width/opacity
}

// EdgeID returns the canonical identifier for an edge. Endpoints are
// ordered so that (a,b) and (b,a) collapse to the same id.
func EdgeID(source, target string) string {
	if target < source {
		source, target = target, source
	}
	return source + "\x00" + target
}

// ID returns the canonical edge identifier.
func (e Edge) ID() string {
	return EdgeID(e.Source, e.Target)
}

// Other returns the endpoint opposite to id, and whether id is an endpoint.
func (e Edge) Other(id string) (string, bool) {
	switch id {
	case e.Source:
		return e.Target, true
	case e.Target:
		return e.Source, true
	}
	return "", false
}

// LoadReport records what was dropped while ingesting a dataset. Dropped
// data is counted, never fatal.
type LoadReport struct {
	NodeCount       int
	EdgeCount       int
	DanglingEdges   int // edges referencing a missing node id
	DuplicateNodes  int // nodes with an id seen earlier in the stream
	SelfLoops       int // edges with source == target
	MissingTrackRef int // nodes without track metadata
}

// HasDrops reports whether anything was discarded during load.
func (r LoadReport) HasDrops() bool {
	return r.DanglingEdges > 0 || r.DuplicateNodes > 0 || r.SelfLoops > 0
}

// String summarizes the report for logs and the status bar.
func (r LoadReport) String() string {
	return fmt.Sprintf("%d nodes, %d edges (dropped: %d dangling, %d duplicate, %d self-loops)",
		r.NodeCount, r.EdgeCount, r.DanglingEdges, r.DuplicateNodes, r.SelfLoops)
}

// Graph is an immutable loaded dataset. Build validates referential
// integrity: dangling edges, duplicate node ids and self-loops are dropped
// and counted in the report.
type Graph struct {
	nodes  []Node
	edges  []Edge
	byID   map[string]*Node
	degree map[string]int
	report LoadReport
}

// NewGraph validates and assembles a graph from raw nodes and edges.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		byID:   make(map[string]*Node, len(nodes)),
		degree: make(map[string]int, len(nodes)),
	}

	g.nodes = make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := g.byID[n.ID]; dup {
			g.report.DuplicateNodes++
			continue
		}
		if n.Track == nil {
			g.report.MissingTrackRef++
		}
		g.nodes = append(g.nodes, n)
		g.byID[n.ID] = &g.nodes[len(g.nodes)-1]
	}

	g.edges = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Source == e.Target {
			g.report.SelfLoops++
			continue
		}
		if g.byID[e.Source] == nil || g.byID[e.Target] == nil {
			g.report.DanglingEdges++
			continue
		}
		g.edges = append(g.edges, e)
		g.degree[e.Source]++
		g.degree[e.Target]++
	}

	g.report.NodeCount = len(g.nodes)
	g.report.EdgeCount = len(g.edges)
	return g
}

// Nodes returns the validated node slice. Callers must not mutate it.
// A nil graph has no nodes.
func (g *Graph) Nodes() []Node {
	if g == nil {
		return nil
	}
	return g.nodes
}

// Edges returns the validated edge slice. Callers must not mutate it.
// A nil graph has no edges.
func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	return g.edges
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	if g == nil {
		return nil
	}
	return g.byID[id]
}

// Degree returns the number of edges touching id.
func (g *Graph) Degree(id string) int {
	if g == nil {
		return 0
	}
	return g.degree[id]
}

// Report returns the load report produced during validation.
func (g *Graph) Report() LoadReport {
	if g == nil {
		return LoadReport{}
	}
	return g.report
}

// Len returns the node count.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Bounds returns the axis-aligned world rectangle enclosing every node's
// bounding circle. ok is false for an empty graph.
func (g *Graph) Bounds() (min, max r2.Vec, ok bool) {
	if g == nil || len(g.nodes) == 0 {
		return r2.Vec{}, r2.Vec{}, false
	}
	first := g.nodes[0]
	min = r2.Vec{X: first.Pos.X - first.Radius, Y: first.Pos.Y - first.Radius}
	max = r2.Vec{X: first.Pos.X + first.Radius, Y: first.Pos.Y + first.Radius}
	for _, n := range g.nodes[1:] {
		if v := n.Pos.X - n.Radius; v < min.X {
			min.X = v
		}
		if v := n.Pos.Y - n.Radius; v < min.Y {
			min.Y = v
		}
		if v := n.Pos.X + n.Radius; v > max.X {
			max.X = v
		}
		if v := n.Pos.Y + n.Radius; v > max.Y {
			max.Y = v
		}
	}
	return min, max, true
}

// SortedIDs returns all node ids in lexical order. Used where deterministic
// iteration matters (exports, tests).
func (g *Graph) SortedIDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.nodes))
	for i := range g.nodes {
		ids = append(ids, g.nodes[i].ID)
	}
	sort.Strings(ids)
	return ids
}
