package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/model"
	"github.com/vanderheijden86/trackmap/pkg/testutil"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")

	g := testutil.NewDefault().Scatter(40, 3)

	lib, err := CreateLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := lib.WriteGraph(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := lib.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()

	loaded, err := ro.ReadGraph(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Len() != g.Len() {
		t.Fatalf("node count = %d, want %d", loaded.Len(), g.Len())
	}
	if len(loaded.Edges()) != len(g.Edges()) {
		t.Fatalf("edge count = %d, want %d", len(loaded.Edges()), len(g.Edges()))
	}

	for _, want := range g.Nodes() {
		got := loaded.Node(want.ID)
		if got == nil {
			t.Fatalf("node %s missing after round trip", want.ID)
		}
		if got.Pos != want.Pos || got.Radius != want.Radius {
			t.Errorf("node %s geometry changed: %+v vs %+v", want.ID, got, want)
		}
		if want.Track != nil {
			if got.Track == nil {
				t.Fatalf("node %s lost track metadata", want.ID)
			}
			if got.Track.Title != want.Track.Title || got.Track.Key != want.Track.Key {
				t.Errorf("node %s track changed: %+v vs %+v", want.ID, got.Track, want.Track)
			}
		}
	}
}

func TestSQLiteWriteReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	ctx := context.Background()

	lib, err := CreateLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	if err := lib.WriteGraph(ctx, testutil.NewDefault().Grid(4, 4)); err != nil {
		t.Fatal(err)
	}
	if err := lib.WriteGraph(ctx, testutil.Single()); err != nil {
		t.Fatal(err)
	}

	count, err := lib.CountNodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("node count after rewrite = %d, want 1", count)
	}

	pos, err := lib.NodePosition(ctx, "solo")
	if err != nil {
		t.Fatal(err)
	}
	if pos != (r2.Vec{}) {
		t.Errorf("solo position = %v, want origin", pos)
	}

	if _, err := lib.NodePosition(ctx, "ghost"); err == nil {
		t.Error("expected error for unknown node id")
	}
}

func TestSQLiteNodeWithoutTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	ctx := context.Background()

	g := model.NewGraph([]model.Node{
		{ID: "bare", Pos: r2.Vec{X: 1, Y: 2}, Radius: 5},
	}, nil)

	lib, err := CreateLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	if err := lib.WriteGraph(ctx, g); err != nil {
		t.Fatal(err)
	}
	loaded, err := lib.ReadGraph(ctx)
	if err != nil {
		t.Fatal(err)
	}

	n := loaded.Node("bare")
	if n == nil {
		t.Fatal("bare node missing")
	}
	if n.Track != nil {
		t.Errorf("expected nil track, got %+v", n.Track)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		path string
		want SourceType
		ok   bool
	}{
		{"library.jsonl", SourceTypeJSONL, true},
		{"/abs/path/lib.db", SourceTypeSQLite, true},
		{"lib.sqlite", SourceTypeSQLite, true},
		{"lib.SQLITE3", SourceTypeSQLite, true},
		{"notes.txt", "", false},
		{"library", "", false},
	}
	for _, tc := range tests {
		got, ok := DetectType(tc.path)
		if got != tc.want || ok != tc.ok {
			t.Errorf("DetectType(%q) = %v,%v want %v,%v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDescribeValidatesSQLiteHeader(t *testing.T) {
	dir := t.TempDir()

	fake := filepath.Join(dir, "fake.db")
	if err := os.WriteFile(fake, []byte("definitely not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Describe(fake)
	if err != nil {
		t.Fatal(err)
	}
	if src.Valid {
		t.Error("non-SQLite .db file marked valid")
	}

	real := filepath.Join(dir, "real.db")
	lib, err := CreateLibrary(real)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.WriteGraph(context.Background(), testutil.Single()); err != nil {
		t.Fatal(err)
	}
	lib.Close()

	src, err = Describe(real)
	if err != nil {
		t.Fatal(err)
	}
	if !src.Valid {
		t.Errorf("real database marked invalid: %s", src.ValidationError)
	}
	if src.Priority != PrioritySQLite {
		t.Errorf("priority = %d, want %d", src.Priority, PrioritySQLite)
	}
}

func TestDescribeEmptyFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Describe(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.Valid {
		t.Error("empty library marked valid")
	}
}

func TestDiscoverAndSelectBest(t *testing.T) {
	dir := t.TempDir()

	jsonlPath := testutil.WriteLibraryFile(t, dir, testutil.NewDefault().Grid(3, 3))

	dbPath := filepath.Join(dir, "library.db")
	lib, err := CreateLibrary(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.WriteGraph(context.Background(), testutil.Single()); err != nil {
		t.Fatal(err)
	}
	lib.Close()

	// Equal timestamps: SQLite priority should win.
	now := time.Now()
	for _, p := range []string{jsonlPath, dbPath} {
		if err := os.Chtimes(p, now, now); err != nil {
			t.Fatal(err)
		}
	}

	sources, err := Discover(DiscoverOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("discovered %d sources, want 2", len(sources))
	}

	best, err := SelectBest(sources)
	if err != nil {
		t.Fatal(err)
	}
	if best.Type != SourceTypeSQLite {
		t.Errorf("best source = %s, want sqlite on timestamp tie", best.Type)
	}

	// A strictly newer JSONL beats the stale database.
	newer := now.Add(time.Hour)
	if err := os.Chtimes(jsonlPath, newer, newer); err != nil {
		t.Fatal(err)
	}
	sources, err = Discover(DiscoverOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	best, err = SelectBest(sources)
	if err != nil {
		t.Fatal(err)
	}
	if best.Type != SourceTypeJSONL {
		t.Errorf("best source = %s, want freshest jsonl", best.Type)
	}
}

func TestSelectBestNoValidSources(t *testing.T) {
	if _, err := SelectBest(nil); err == nil {
		t.Error("expected error for empty source list")
	}
	if _, err := SelectBest([]DataSource{{Valid: false}}); err == nil {
		t.Error("expected error when all sources invalid")
	}
}

func TestLoadGraphDispatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	g := testutil.NewDefault().Grid(3, 2)

	jsonlPath := testutil.WriteLibraryFile(t, dir, g)
	fromJSONL, err := LoadGraph(ctx, jsonlPath)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertNodeCount(t, fromJSONL, g.Len())

	dbPath := filepath.Join(dir, "library.db")
	lib, err := CreateLibrary(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.WriteGraph(ctx, g); err != nil {
		t.Fatal(err)
	}
	lib.Close()

	fromDB, err := LoadGraph(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertNodeCount(t, fromDB, g.Len())

	if _, err := LoadGraph(ctx, filepath.Join(dir, "unknown.txt")); err == nil {
		t.Error("expected error for unrecognized format")
	}
}

func TestLoadBest(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	g := testutil.NewDefault().Grid(4, 2)
	testutil.WriteLibraryFile(t, dir, g)

	loaded, src, err := LoadBest(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if src.Type != SourceTypeJSONL {
		t.Errorf("source type = %s, want jsonl", src.Type)
	}
	testutil.AssertNodeCount(t, loaded, g.Len())
}

func TestLoadBestEmptyDir(t *testing.T) {
	if _, _, err := LoadBest(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error for directory without libraries")
	}
}

func TestDiffAddRemoveMove(t *testing.T) {
	before := model.NewGraph([]model.Node{
		{ID: "a", Pos: r2.Vec{X: 0, Y: 0}, Radius: 5},
		{ID: "b", Pos: r2.Vec{X: 10, Y: 0}, Radius: 5},
		{ID: "c", Pos: r2.Vec{X: 20, Y: 0}, Radius: 5},
	}, []model.Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
	})
	after := model.NewGraph([]model.Node{
		{ID: "a", Pos: r2.Vec{X: 0, Y: 0}, Radius: 5},
		{ID: "b", Pos: r2.Vec{X: 10, Y: 99}, Radius: 5},
		{ID: "d", Pos: r2.Vec{X: 30, Y: 0}, Radius: 5},
	}, []model.Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "d"},
	})

	d := Diff(before, after)

	if len(d.AddedNodes) != 1 || d.AddedNodes[0] != "d" {
		t.Errorf("added = %v, want [d]", d.AddedNodes)
	}
	if len(d.RemovedNodes) != 1 || d.RemovedNodes[0] != "c" {
		t.Errorf("removed = %v, want [c]", d.RemovedNodes)
	}
	if d.MovedNodes != 1 {
		t.Errorf("moved = %d, want 1", d.MovedNodes)
	}
	if d.AddedEdges != 1 || d.RemovedEdges != 1 {
		t.Errorf("edges = +%d/-%d, want +1/-1", d.AddedEdges, d.RemovedEdges)
	}
	if d.Empty() {
		t.Error("diff should not be empty")
	}
	if d.String() == "no changes" {
		t.Error("String should describe changes")
	}
}

func TestDiffIdentical(t *testing.T) {
	g := testutil.NewDefault().Grid(3, 3)
	d := Diff(g, g)
	if !d.Empty() {
		t.Errorf("self diff not empty: %s", d)
	}
	if d.String() != "no changes" {
		t.Errorf("String = %q", d.String())
	}
}

func TestDiffNilGraphs(t *testing.T) {
	g := testutil.Single()

	d := Diff(nil, g)
	if len(d.AddedNodes) != 1 {
		t.Errorf("nil before: added = %v", d.AddedNodes)
	}

	d = Diff(g, nil)
	if len(d.RemovedNodes) != 1 {
		t.Errorf("nil after: removed = %v", d.RemovedNodes)
	}

	if !Diff(nil, nil).Empty() {
		t.Error("nil/nil diff should be empty")
	}
}
