package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/trackmap/pkg/loader"
	"github.com/vanderheijden86/trackmap/pkg/model"
)

// LoadGraph loads a track graph from a library file, dispatching on the
// detected source type.
func LoadGraph(ctx context.Context, path string) (*model.Graph, error) {
	src, err := Describe(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(ctx, src)
}

// LoadFromSource loads a graph from a specific discovered source.
func LoadFromSource(ctx context.Context, src DataSource) (*model.Graph, error) {
	switch src.Type {
	case SourceTypeSQLite:
		lib, err := OpenLibrary(src.Path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", src.Path, err)
		}
		defer lib.Close()
		return lib.ReadGraph(ctx)

	case SourceTypeJSONL:
		return loader.LoadFile(src.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}

// LoadBest discovers sources in dir, picks the freshest valid one, and
// loads it. The chosen source is returned alongside the graph so the
// caller can watch the right file.
func LoadBest(ctx context.Context, dir string) (*model.Graph, DataSource, error) {
	sources, err := Discover(DiscoverOptions{Dir: dir})
	if err != nil {
		return nil, DataSource{}, err
	}
	best, err := SelectBest(sources)
	if err != nil {
		return nil, DataSource{}, fmt.Errorf("selecting library in %s: %w", dir, err)
	}
	g, err := LoadFromSource(ctx, best)
	if err != nil {
		return nil, DataSource{}, err
	}
	return g, best, nil
}
