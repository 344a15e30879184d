// Package highlight maintains the set of search-matched node and edge ids.
//
// The engine is deliberately independent of culling and render-tree
// rebuilding: a query change only swaps the color/priority overlay, so it
// is cheap enough to run on every keystroke (debouncing belongs at the UI
// boundary, not here).
package highlight

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/trackmap/pkg/model"
)

// minFuzzyLen gates the fuzzy pass: very short queries produce noisy fuzzy
// matches, substring matching already covers them.
const minFuzzyLen = 3

// Set is the derived highlight state. Never persisted; recomputed whenever
// the query or the dataset changes.
type Set struct {
	NodeIDs map[string]bool
	EdgeIDs map[string]bool
}

// Empty reports whether nothing is highlighted.
func (s Set) Empty() bool { return len(s.NodeIDs) == 0 }

// SortedNodeIDs returns the matched node ids in lexical order.
func (s Set) SortedNodeIDs() []string {
	ids := make([]string, 0, len(s.NodeIDs))
	for id := range s.NodeIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Engine matches a free-text query against track metadata (title and
// artist) and propagates matches onto edges.
type Engine struct {
	graph *model.Graph

	// Search corpus, parallel slices rebuilt on SetGraph.
	ids     []string
	haystay []string // lowercased "title artist" per node

	query string
	set   Set
}

// NewEngine returns an engine with no dataset and an empty highlight set.
func NewEngine() *Engine {
	e := &Engine{}
	e.set = emptySet()
	return e
}

func emptySet() Set {
	return Set{NodeIDs: map[string]bool{}, EdgeIDs: map[string]bool{}}
}

// SetGraph replaces the dataset and recomputes the current query against
// it. The search corpus is rebuilt once here, not per keystroke.
func (e *Engine) SetGraph(g *model.Graph) {
	e.graph = g
	e.ids = e.ids[:0]
	e.haystay = e.haystay[:0]
	if g != nil {
		for _, n := range g.Nodes() {
			e.ids = append(e.ids, n.ID)
			e.haystay = append(e.haystay, corpusEntry(n))
		}
	}
	e.recompute()
}

func corpusEntry(n model.Node) string {
	if n.Track == nil {
		return strings.ToLower(n.ID)
	}
	return strings.ToLower(n.Track.Title + " " + n.Track.Artist)
}

// SetQuery updates the query and returns the resulting highlight set.
// An empty (or whitespace-only) query highlights nothing.
func (e *Engine) SetQuery(text string) Set {
	e.query = strings.TrimSpace(text)
	e.recompute()
	return e.set
}

// Query returns the current query text.
func (e *Engine) Query() string { return e.query }

// Current returns the active highlight set.
func (e *Engine) Current() Set { return e.set }

func (e *Engine) recompute() {
	if e.query == "" || e.graph == nil {
		e.set = emptySet()
		return
	}
	needle := strings.ToLower(e.query)

	matched := make(map[string]bool)
	for i, hay := range e.haystay {
		if strings.Contains(hay, needle) {
			matched[e.ids[i]] = true
		}
	}

	// Fuzzy pass widens the net for typos and word-initial abbreviations,
	// the same matcher the bubbles list filter uses.
	if len(needle) >= minFuzzyLen {
		for _, m := range fuzzy.Find(needle, e.haystay) {
			matched[e.ids[m.Index]] = true
		}
	}

	// Edge policy: an edge highlights when either endpoint matched. The
	// either-endpoint reading keeps a matched track's mixable neighbors
	// discoverable at a glance.
	edges := make(map[string]bool)
	for _, edge := range e.graph.Edges() {
		if matched[edge.Source] || matched[edge.Target] {
			edges[edge.ID()] = true
		}
	}

	e.set = Set{NodeIDs: matched, EdgeIDs: edges}
}
