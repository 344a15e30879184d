package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/trackmap/pkg/model"
)

// schema holds nodes with denormalized track metadata and an edge list.
// Position and radius are layout outputs and immutable once written.
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id       TEXT PRIMARY KEY,
	x        REAL NOT NULL,
	y        REAL NOT NULL,
	radius   REAL NOT NULL,
	track_id TEXT,
	title    TEXT,
	artist   TEXT,
	bpm      REAL,
	key      TEXT,
	energy   REAL
);
CREATE TABLE IF NOT EXISTS edges (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	weight REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
`

// SQLiteLibrary provides access to a track library stored in SQLite.
type SQLiteLibrary struct {
	db   *sql.DB
	path string
}

// OpenLibrary opens an existing library database read-only.
func OpenLibrary(path string) (*SQLiteLibrary, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}
	return &SQLiteLibrary{db: db, path: path}, nil
}

// CreateLibrary opens (creating if needed) a library database for
// writing and ensures the schema exists.
func CreateLibrary(path string) (*SQLiteLibrary, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating library schema: %w", err)
	}
	return &SQLiteLibrary{db: db, path: path}, nil
}

// Close closes the database connection.
func (l *SQLiteLibrary) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (l *SQLiteLibrary) Path() string {
	return l.path
}

// ReadGraph loads the full graph. Node and edge tables are read
// concurrently; referential validation happens in model.NewGraph.
func (l *SQLiteLibrary) ReadGraph(ctx context.Context) (*model.Graph, error) {
	var (
		nodes []model.Node
		edges []model.Edge
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		nodes, err = l.readNodes(ctx)
		return err
	})
	eg.Go(func() error {
		var err error
		edges, err = l.readEdges(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return model.NewGraph(nodes, edges), nil
}

func (l *SQLiteLibrary) readNodes(ctx context.Context) ([]model.Node, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, x, y, radius, track_id, title, artist, bpm, key, energy
		FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		var trackID, title, artist, key sql.NullString
		var bpm, energy sql.NullFloat64
		if err := rows.Scan(&n.ID, &n.Pos.X, &n.Pos.Y, &n.Radius,
			&trackID, &title, &artist, &bpm, &key, &energy); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if trackID.Valid && trackID.String != "" {
			n.Track = &model.Track{
				ID:     trackID.String,
				Title:  title.String,
				Artist: artist.String,
				BPM:    bpm.Float64,
				Key:    model.CamelotKey(key.String),
				Energy: energy.Float64,
			}
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func (l *SQLiteLibrary) readEdges(ctx context.Context) ([]model.Edge, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT source, target, weight FROM edges ORDER BY source, target`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Weight); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}
	return edges, nil
}

// WriteGraph replaces the library contents with the given graph in a
// single transaction.
func (l *SQLiteLibrary) WriteGraph(ctx context.Context, g *model.Graph) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, x, y, radius, track_id, title, artist, bpm, key, energy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range g.Nodes() {
		var trackID, title, artist, key any
		var bpm, energy any
		if n.Track != nil {
			trackID, title, artist = n.Track.ID, n.Track.Title, n.Track.Artist
			bpm, key, energy = n.Track.BPM, string(n.Track.Key), n.Track.Energy
		}
		if _, err := nodeStmt.ExecContext(ctx, n.ID, n.Pos.X, n.Pos.Y, n.Radius,
			trackID, title, artist, bpm, key, energy); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (source, target, weight) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, e.Source, e.Target, e.Weight); err != nil {
			return fmt.Errorf("inserting edge %s-%s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing library write: %w", err)
	}
	return nil
}

// CountNodes returns the number of stored nodes.
func (l *SQLiteLibrary) CountNodes(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting nodes: %w", err)
	}
	return count, nil
}

// NodePosition returns the stored position for a single node id.
func (l *SQLiteLibrary) NodePosition(ctx context.Context, id string) (r2.Vec, error) {
	var pos r2.Vec
	err := l.db.QueryRowContext(ctx, `SELECT x, y FROM nodes WHERE id = ?`, id).
		Scan(&pos.X, &pos.Y)
	if err == sql.ErrNoRows {
		return r2.Vec{}, fmt.Errorf("node not found: %s", id)
	}
	if err != nil {
		return r2.Vec{}, err
	}
	return pos, nil
}
