package testutil

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestScatter(t *testing.T) {
	gen := NewDefault()
	g := gen.Scatter(100, 3)

	AssertNodeCount(t, g, 100)
	AssertNoDuplicateIDs(t, g)

	// Every node inside the world extent.
	for _, n := range g.Nodes() {
		if n.Pos.X < 0 || n.Pos.X > 2000 || n.Pos.Y < 0 || n.Pos.Y > 2000 {
			t.Errorf("node %s outside world extent: %v", n.ID, n.Pos)
		}
		if n.Track == nil {
			t.Errorf("node %s missing track metadata", n.ID)
		}
	}
}

func TestScatterDeterminism(t *testing.T) {
	a := NewDefault().Scatter(50, 2)
	b := NewDefault().Scatter(50, 2)

	if a.Len() != b.Len() || len(a.Edges()) != len(b.Edges()) {
		t.Fatalf("same seed produced different graphs: %d/%d vs %d/%d nodes/edges",
			a.Len(), len(a.Edges()), b.Len(), len(b.Edges()))
	}
	for i, n := range a.Nodes() {
		if b.Nodes()[i].Pos != n.Pos {
			t.Fatalf("node %d position differs across runs", i)
		}
	}
}

func TestClustered(t *testing.T) {
	g := NewDefault().Clustered(60, 4)
	AssertNodeCount(t, g, 60)
	if len(g.Edges()) == 0 {
		t.Error("clustered graph has no edges")
	}
	AssertCleanLoad(t, g)
}

func TestGrid(t *testing.T) {
	gen := New(GeneratorConfig{Seed: 1, WorldW: 100, WorldH: 100})
	g := gen.Grid(5, 4)

	AssertNodeCount(t, g, 20)
	if got := len(g.Edges()); got != 16 { // 4 per row
		t.Errorf("grid edges = %d, want 16", got)
	}
	AssertEdgeExists(t, g, "n0", "n1")

	n := g.Node("n7") // row 1, col 2
	if n == nil || n.Pos.X != 40 || n.Pos.Y != 25 {
		t.Errorf("n7 = %+v, want pos (40,25)", n)
	}
}

func TestToJSONL(t *testing.T) {
	g := NewDefault().Grid(2, 2)
	jsonl := ToJSONL(g)

	lines := strings.Split(strings.TrimSpace(jsonl), "\n")
	if want := g.Len() + len(g.Edges()); len(lines) != want {
		t.Fatalf("JSONL lines = %d, want %d", len(lines), want)
	}

	for i, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d invalid JSON: %v", i, err)
		}
		if rec["kind"] != "node" && rec["kind"] != "edge" {
			t.Errorf("line %d kind = %v", i, rec["kind"])
		}
	}
}

func TestEmptyAndSingle(t *testing.T) {
	if g := Empty(); g.Len() != 0 {
		t.Errorf("Empty has %d nodes", g.Len())
	}
	g := Single()
	if g.Len() != 1 || g.Node("solo") == nil {
		t.Error("Single should have exactly node solo")
	}
}

func BenchmarkScatter1000(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewDefault().Scatter(1000, 3)
	}
}

func BenchmarkToJSONL1000(b *testing.B) {
	g := NewDefault().Scatter(1000, 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ToJSONL(g)
	}
}
