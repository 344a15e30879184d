package datasource

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/trackmap/pkg/model"
)

// GraphDiff summarizes what changed between two loads of a library.
// The UI shows it after a live reload so the user knows why the view
// shifted.
type GraphDiff struct {
	AddedNodes   []string
	RemovedNodes []string
	MovedNodes   int
	AddedEdges   int
	RemovedEdges int
}

// Empty reports whether the two graphs are structurally identical.
func (d GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		d.MovedNodes == 0 && d.AddedEdges == 0 && d.RemovedEdges == 0
}

func (d GraphDiff) String() string {
	if d.Empty() {
		return "no changes"
	}
	var parts []string
	if n := len(d.AddedNodes); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d nodes", n))
	}
	if n := len(d.RemovedNodes); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d nodes", n))
	}
	if d.MovedNodes > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", d.MovedNodes))
	}
	if d.AddedEdges > 0 {
		parts = append(parts, fmt.Sprintf("+%d edges", d.AddedEdges))
	}
	if d.RemovedEdges > 0 {
		parts = append(parts, fmt.Sprintf("-%d edges", d.RemovedEdges))
	}
	return strings.Join(parts, ", ")
}

// Diff compares two graphs by node id and canonical edge id. Node ids in
// the result are sorted. A nil graph counts as empty.
func Diff(before, after *model.Graph) GraphDiff {
	var d GraphDiff

	for _, id := range sortedNodeIDs(after) {
		old := nodeOf(before, id)
		if old == nil {
			d.AddedNodes = append(d.AddedNodes, id)
			continue
		}
		if cur := nodeOf(after, id); cur.Pos != old.Pos {
			d.MovedNodes++
		}
	}
	for _, id := range sortedNodeIDs(before) {
		if nodeOf(after, id) == nil {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}

	beforeEdges := edgeSet(before)
	afterEdges := edgeSet(after)
	for id := range afterEdges {
		if _, ok := beforeEdges[id]; !ok {
			d.AddedEdges++
		}
	}
	for id := range beforeEdges {
		if _, ok := afterEdges[id]; !ok {
			d.RemovedEdges++
		}
	}

	return d
}

func sortedNodeIDs(g *model.Graph) []string {
	if g == nil {
		return nil
	}
	return g.SortedIDs()
}

func nodeOf(g *model.Graph, id string) *model.Node {
	if g == nil {
		return nil
	}
	return g.Node(id)
}

func edgeSet(g *model.Graph) map[string]struct{} {
	if g == nil {
		return nil
	}
	set := make(map[string]struct{}, len(g.Edges()))
	for _, e := range g.Edges() {
		set[model.EdgeID(e.Source, e.Target)] = struct{}{}
	}
	return set
}
