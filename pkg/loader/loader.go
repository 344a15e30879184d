// Package loader reads track libraries from line-delimited JSON.
//
// A library file carries one record per line, discriminated by "kind":
//
//	{"kind":"node","id":"n1","x":120,"y":80,"radius":8,"track":{...}}
//	{"kind":"edge","source":"n1","target":"n2","weight":0.8}
//
// Malformed lines are skipped with a warning, never fatal: the loader's
// contract is to deliver whatever valid subset the file holds, with the
// drops counted in the graph's load report.
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/metrics"
	"github.com/vanderheijden86/trackmap/pkg/model"
)

// DefaultMaxBufferSize is the maximum accepted line length (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// record is the union of node and edge lines.
type record struct {
	Kind string `json:"kind"`

	// node fields
	ID     string       `json:"id"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Radius float64      `json:"radius"`
	Track  *model.Track `json:"track"`

	// edge fields
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// WarningHandler is called with warning messages (malformed lines,
	// unknown kinds). If nil, warnings go to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum line size in bytes. Lines longer than
	// this are skipped with a warning. 0 selects DefaultMaxBufferSize.
	BufferSize int
}

// LoadFile reads a library from a JSONL file.
func LoadFile(path string) (*model.Graph, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions reads a library from a JSONL file with custom options.
func LoadFileWithOptions(path string, opts ParseOptions) (*model.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}
	defer f.Close()

	g, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return g, nil
}

// Parse reads JSONL records from r and assembles the graph. Referential
// validation (dangling edges, duplicates, self-loops) happens in
// model.NewGraph; Parse only deals with the wire format.
func Parse(r io.Reader, opts ParseOptions) (*model.Graph, error) {
	defer metrics.Timer(metrics.JSONParsing)()

	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}

	var nodes []model.Node
	var edges []model.Edge

	reader := bufio.NewReaderSize(r, maxCapacity)
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("reading line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("skipping long line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if len(line) == 0 {
			continue
		}
		if lineNum == 1 {
			line = stripBOM(line)
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}

		switch rec.Kind {
		case "node":
			if rec.ID == "" {
				warn(fmt.Sprintf("skipping node on line %d: missing id", lineNum))
				continue
			}
			radius := rec.Radius
			if radius <= 0 {
				radius = 5
			}
			nodes = append(nodes, model.Node{
				ID:     rec.ID,
				Pos:    r2.Vec{X: rec.X, Y: rec.Y},
				Radius: radius,
				Track:  rec.Track,
			})
		case "edge":
			if rec.Source == "" || rec.Target == "" {
				warn(fmt.Sprintf("skipping edge on line %d: missing endpoint", lineNum))
				continue
			}
			edges = append(edges, model.Edge{
				Source: rec.Source,
				Target: rec.Target,
				Weight: rec.Weight,
			})
		default:
			warn(fmt.Sprintf("skipping line %d: unknown kind %q", lineNum, rec.Kind))
		}
	}

	return model.NewGraph(nodes, edges), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(line []byte) []byte {
	return bytes.TrimPrefix(line, utf8BOM)
}
