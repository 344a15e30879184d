package spatial

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/trackmap/pkg/geometry"
	"github.com/vanderheijden86/trackmap/pkg/model"
)

func gridNodes(cols, rows int, spacing, radius float64) []model.Node {
	nodes := make([]model.Node, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			nodes = append(nodes, model.Node{
				ID:     fmt.Sprintf("n%03d", y*cols+x),
				Pos:    r2.Vec{X: float64(x) * spacing, Y: float64(y) * spacing},
				Radius: radius,
			})
		}
	}
	return nodes
}

func TestQueryReturnsNodesInRect(t *testing.T) {
	idx := Build(gridNodes(10, 10, 100, 5))

	r := geometry.Rect{Min: r2.Vec{X: -10, Y: -10}, Max: r2.Vec{X: 210, Y: 110}}
	got := idx.Query(r)

	// Rows 0-1, columns 0-2: six nodes fully inside.
	want := map[string]bool{
		"n000": true, "n001": true, "n002": true,
		"n010": true, "n011": true, "n012": true,
	}
	if len(got) != len(want) {
		t.Fatalf("Query returned %d ids (%v), want %d", len(got), got, len(want))
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected id %s in result", id)
		}
	}
}

func TestQueryIncludesCircleOverlap(t *testing.T) {
	// Node center outside the rect but bounding circle crossing it.
	nodes := []model.Node{
		{ID: "edge", Pos: r2.Vec{X: 105, Y: 50}, Radius: 10},
		{ID: "far", Pos: r2.Vec{X: 300, Y: 50}, Radius: 10},
	}
	idx := Build(nodes)
	got := idx.Query(geometry.Rect{Min: r2.Vec{}, Max: r2.Vec{X: 100, Y: 100}})
	if len(got) != 1 || got[0] != "edge" {
		t.Errorf("Query = %v, want [edge]", got)
	}
}

func TestNearestBasic(t *testing.T) {
	idx := Build(gridNodes(5, 5, 100, 8))

	if got := idx.Nearest(r2.Vec{X: 103, Y: 98}, 50); got != "n006" {
		t.Errorf("Nearest = %q, want n006", got)
	}
	if got := idx.Nearest(r2.Vec{X: 5000, Y: 5000}, 50); got != "" {
		t.Errorf("Nearest far away = %q, want empty", got)
	}
}

func TestNearestInsideNodeIsZeroDistance(t *testing.T) {
	nodes := []model.Node{{ID: "a", Pos: r2.Vec{X: 0, Y: 0}, Radius: 20}}
	idx := Build(nodes)
	if got := idx.Nearest(r2.Vec{X: 3, Y: -4}, 0); got != "a" {
		t.Errorf("click inside node radius should hit even with maxRadius 0, got %q", got)
	}
}

func TestNearestTieBreaksByID(t *testing.T) {
	// Two nodes exactly equidistant from the probe point.
	nodes := []model.Node{
		{ID: "zeta", Pos: r2.Vec{X: -10, Y: 0}, Radius: 2},
		{ID: "alpha", Pos: r2.Vec{X: 10, Y: 0}, Radius: 2},
	}
	idx := Build(nodes)
	for i := 0; i < 20; i++ {
		if got := idx.Nearest(r2.Vec{X: 0, Y: 0}, 50); got != "alpha" {
			t.Fatalf("call %d: Nearest = %q, want alpha (id tie-break)", i, got)
		}
	}

	// Input order must not matter.
	idx = Build([]model.Node{nodes[1], nodes[0]})
	if got := idx.Nearest(r2.Vec{X: 0, Y: 0}, 50); got != "alpha" {
		t.Errorf("reversed input: Nearest = %q, want alpha", got)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := Build(nil)
	if got := idx.Query(geometry.Rect{Max: r2.Vec{X: 100, Y: 100}}); got != nil {
		t.Errorf("Query on empty index = %v, want nil", got)
	}
	if got := idx.Nearest(r2.Vec{}, 100); got != "" {
		t.Errorf("Nearest on empty index = %q, want empty", got)
	}
}

func TestNearestDegenerateInput(t *testing.T) {
	idx := Build(gridNodes(3, 3, 50, 5))
	if got := idx.Nearest(r2.Vec{X: math.NaN(), Y: 0}, 100); got != "" {
		t.Errorf("NaN probe returned %q", got)
	}
	if got := idx.Nearest(r2.Vec{}, math.Inf(1)); got != "" {
		t.Errorf("infinite radius returned %q", got)
	}
	if got := idx.Nearest(r2.Vec{}, -1); got != "" {
		t.Errorf("negative radius returned %q", got)
	}
}

// Property: Nearest agrees with a brute-force scan (modulo identical
// tie-break rules) for arbitrary node clouds and probe points.
func TestNearestMatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 60).Draw(t, "n")
		nodes := make([]model.Node, n)
		for i := range nodes {
			nodes[i] = model.Node{
				ID:     fmt.Sprintf("n%02d", i),
				Pos:    r2.Vec{X: rapid.Float64Range(-500, 500).Draw(t, "x"), Y: rapid.Float64Range(-500, 500).Draw(t, "y")},
				Radius: rapid.Float64Range(1, 15).Draw(t, "r"),
			}
		}
		probe := r2.Vec{
			X: rapid.Float64Range(-600, 600).Draw(t, "px"),
			Y: rapid.Float64Range(-600, 600).Draw(t, "py"),
		}
		maxR := rapid.Float64Range(0, 200).Draw(t, "maxR")

		idx := Build(nodes)
		got := idx.Nearest(probe, maxR)

		bestID := ""
		bestDist := math.Inf(1)
		for _, nd := range nodes {
			d := math.Hypot(nd.Pos.X-probe.X, nd.Pos.Y-probe.Y) - nd.Radius
			if d < 0 {
				d = 0
			}
			if d > maxR {
				continue
			}
			if d < bestDist || (d == bestDist && nd.ID < bestID) {
				bestDist = d
				bestID = nd.ID
			}
		}
		if got != bestID {
			t.Fatalf("Nearest = %q, brute force = %q (dist %v)", got, bestID, bestDist)
		}
	})
}

// Property: Query returns exactly the nodes whose circle intersects the rect.
func TestQueryMatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 80).Draw(t, "n")
		nodes := make([]model.Node, n)
		for i := range nodes {
			nodes[i] = model.Node{
				ID:     fmt.Sprintf("n%02d", i),
				Pos:    r2.Vec{X: rapid.Float64Range(-500, 500).Draw(t, "x"), Y: rapid.Float64Range(-500, 500).Draw(t, "y")},
				Radius: rapid.Float64Range(0, 20).Draw(t, "r"),
			}
		}
		x0 := rapid.Float64Range(-600, 600).Draw(t, "x0")
		y0 := rapid.Float64Range(-600, 600).Draw(t, "y0")
		rect := geometry.Rect{
			Min: r2.Vec{X: x0, Y: y0},
			Max: r2.Vec{X: x0 + rapid.Float64Range(0, 400).Draw(t, "w"), Y: y0 + rapid.Float64Range(0, 400).Draw(t, "h")},
		}

		idx := Build(nodes)
		got := idx.Query(rect)

		want := make(map[string]bool)
		for _, nd := range nodes {
			if rect.IntersectsCircle(nd.Pos, nd.Radius) {
				want[nd.ID] = true
			}
		}
		if len(got) != len(want) {
			t.Fatalf("Query returned %d ids, want %d", len(got), len(want))
		}
		for _, id := range got {
			if !want[id] {
				t.Fatalf("unexpected id %q", id)
			}
		}
	})
}

func BenchmarkNearest1500(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	nodes := make([]model.Node, 1500)
	for i := range nodes {
		nodes[i] = model.Node{
			ID:     fmt.Sprintf("n%04d", i),
			Pos:    r2.Vec{X: rng.Float64() * 4000, Y: rng.Float64() * 4000},
			Radius: 6,
		}
	}
	idx := Build(nodes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Nearest(r2.Vec{X: float64(i%4000) * 1.0, Y: 2000}, 40)
	}
}

func BenchmarkQueryViewport1500(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	nodes := make([]model.Node, 1500)
	for i := range nodes {
		nodes[i] = model.Node{
			ID:     fmt.Sprintf("n%04d", i),
			Pos:    r2.Vec{X: rng.Float64() * 4000, Y: rng.Float64() * 4000},
			Radius: 6,
		}
	}
	idx := Build(nodes)
	rect := geometry.Rect{Min: r2.Vec{X: 1000, Y: 1000}, Max: r2.Vec{X: 2400, Y: 1900}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Query(rect)
	}
}
