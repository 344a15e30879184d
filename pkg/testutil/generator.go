// Package testutil provides deterministic track-graph fixtures for tests
// and benchmarks. All generators are seeded so output is reproducible.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed     int64   // random seed for determinism (0 = 42)
	IDPrefix string  // prefix for node ids (default: "n")
	WorldW   float64 // layout extent, world units (default: 2000)
	WorldH   float64 // layout extent, world units (default: 2000)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "n",
		WorldW:   2000,
		WorldH:   2000,
	}
}

// Generator creates track graphs with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	if cfg.WorldW <= 0 {
		cfg.WorldW = 2000
	}
	if cfg.WorldH <= 0 {
		cfg.WorldH = 2000
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

var (
	sampleArtists = []string{
		"deadmau5", "Bicep", "Jon Hopkins", "Bonobo", "Moderat",
		"Overmono", "Four Tet", "Rival Consoles", "Daphni", "Floating Points",
	}
	sampleWords = []string{
		"Strobe", "Glue", "Opal", "Kerala", "Atlas", "Emerald", "Rust",
		"Ghost", "Linger", "Marble", "Cascade", "Borealis", "Vault", "Ember",
	}
	camelotKeys = []model.CamelotKey{
		"1A", "2A", "3A", "4A", "5A", "6A", "7A", "8A", "9A", "10A", "11A", "12A",
		"1B", "2B", "3B", "4B", "5B", "6B", "7B", "8B", "9B", "10B", "11B", "12B",
	}
)

func (g *Generator) track(i int) *model.Track {
	return &model.Track{
		ID:     fmt.Sprintf("t%04d", i),
		Title:  sampleWords[g.rng.Intn(len(sampleWords))] + " " + sampleWords[g.rng.Intn(len(sampleWords))],
		Artist: sampleArtists[g.rng.Intn(len(sampleArtists))],
		BPM:    118 + float64(g.rng.Intn(18)),
		Key:    camelotKeys[g.rng.Intn(len(camelotKeys))],
		Energy: g.rng.Float64(),
	}
}

// Scatter lays out size nodes uniformly over the world extent with random
// radii, connecting each node to a few of its successors. The default
// fixture for viewport, culling and hit-testing tests.
func (g *Generator) Scatter(size, edgesPerNode int) *model.Graph {
	nodes := make([]model.Node, size)
	for i := range nodes {
		nodes[i] = model.Node{
			ID: fmt.Sprintf("%s%d", g.cfg.IDPrefix, i),
			Pos: r2.Vec{
				X: g.rng.Float64() * g.cfg.WorldW,
				Y: g.rng.Float64() * g.cfg.WorldH,
			},
			Radius: 4 + g.rng.Float64()*8,
			Track:  g.track(i),
		}
	}

	var edges []model.Edge
	for i := range nodes {
		for k := 0; k < edgesPerNode; k++ {
			j := g.rng.Intn(size)
			if j == i {
				continue
			}
			edges = append(edges, model.Edge{
				Source: nodes[i].ID,
				Target: nodes[j].ID,
				Weight: g.rng.Float64() * 2,
			})
		}
	}
	return model.NewGraph(nodes, edges)
}

// Clustered places size nodes into a handful of gaussian clusters, the
// shape a real mix library takes after a layout pass groups compatible
// keys together.
func (g *Generator) Clustered(size, clusters int) *model.Graph {
	if clusters < 1 {
		clusters = 1
	}
	centers := make([]r2.Vec, clusters)
	for i := range centers {
		centers[i] = r2.Vec{
			X: g.rng.Float64() * g.cfg.WorldW,
			Y: g.rng.Float64() * g.cfg.WorldH,
		}
	}
	spread := math.Min(g.cfg.WorldW, g.cfg.WorldH) / float64(clusters*4)

	nodes := make([]model.Node, size)
	for i := range nodes {
		c := centers[i%clusters]
		nodes[i] = model.Node{
			ID: fmt.Sprintf("%s%d", g.cfg.IDPrefix, i),
			Pos: r2.Vec{
				X: c.X + g.rng.NormFloat64()*spread,
				Y: c.Y + g.rng.NormFloat64()*spread,
			},
			Radius: 4 + g.rng.Float64()*8,
			Track:  g.track(i),
		}
	}

	// Connect within clusters: neighbors in the same modulo class.
	var edges []model.Edge
	for i := clusters; i < size; i++ {
		edges = append(edges, model.Edge{
			Source: nodes[i].ID,
			Target: nodes[i-clusters].ID,
			Weight: 0.5 + g.rng.Float64(),
		})
	}
	return model.NewGraph(nodes, edges)
}

// Grid lays out cols x rows nodes on a regular lattice with unit spacing
// scaled to the world extent. Handy when a test needs exact positions.
func (g *Generator) Grid(cols, rows int) *model.Graph {
	nodes := make([]model.Node, 0, cols*rows)
	sx := g.cfg.WorldW / float64(cols)
	sy := g.cfg.WorldH / float64(rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			nodes = append(nodes, model.Node{
				ID:     fmt.Sprintf("%s%d", g.cfg.IDPrefix, i),
				Pos:    r2.Vec{X: float64(x) * sx, Y: float64(y) * sy},
				Radius: 5,
				Track:  g.track(i),
			})
		}
	}
	var edges []model.Edge
	for y := 0; y < rows; y++ {
		for x := 1; x < cols; x++ {
			i := y*cols + x
			edges = append(edges, model.Edge{
				Source: nodes[i-1].ID,
				Target: nodes[i].ID,
				Weight: 1,
			})
		}
	}
	return model.NewGraph(nodes, edges)
}

// jsonlNode mirrors the loader's on-disk node record.
type jsonlNode struct {
	Kind   string       `json:"kind"`
	ID     string       `json:"id"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Radius float64      `json:"radius,omitempty"`
	Track  *model.Track `json:"track,omitempty"`
}

// jsonlEdge mirrors the loader's on-disk edge record.
type jsonlEdge struct {
	Kind   string  `json:"kind"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight,omitempty"`
}

// ToJSONL serializes a graph in the loader's line-delimited format.
func ToJSONL(g *model.Graph) string {
	var sb strings.Builder
	for _, n := range g.Nodes() {
		rec, err := json.Marshal(jsonlNode{
			Kind: "node", ID: n.ID, X: n.Pos.X, Y: n.Pos.Y,
			Radius: n.Radius, Track: n.Track,
		})
		if err != nil {
			continue
		}
		sb.Write(rec)
		sb.WriteByte('\n')
	}
	for _, e := range g.Edges() {
		rec, err := json.Marshal(jsonlEdge{
			Kind: "edge", Source: e.Source, Target: e.Target, Weight: e.Weight,
		})
		if err != nil {
			continue
		}
		sb.Write(rec)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Empty returns a graph with no nodes, for edge case testing.
func Empty() *model.Graph {
	return model.NewGraph(nil, nil)
}

// Single returns a one-node graph at the world origin.
func Single() *model.Graph {
	return model.NewGraph([]model.Node{{
		ID:     "solo",
		Pos:    r2.Vec{},
		Radius: 10,
		Track:  &model.Track{ID: "t-solo", Title: "Solo", Artist: "Nobody", BPM: 120, Key: "8A"},
	}}, nil)
}
