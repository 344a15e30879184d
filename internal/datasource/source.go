// Package datasource discovers and selects track library sources. A
// library lives either as a JSONL file or as a SQLite database; when a
// directory holds both, the freshest valid source wins, with SQLite
// preferred on ties since it reflects edits the JSONL export may lag.
package datasource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the kind of library source.
type SourceType string

const (
	SourceTypeSQLite SourceType = "sqlite"
	SourceTypeJSONL  SourceType = "jsonl"
)

// Priority values per source type. Higher wins when timestamps tie.
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// DataSource is one candidate library file.
type DataSource struct {
	Type            SourceType `json:"type"`
	Path            string     `json:"path"`
	Priority        int        `json:"priority"`
	ModTime         time.Time  `json:"mod_time"`
	Size            int64      `json:"size"`
	Valid           bool       `json:"valid"`
	ValidationError string     `json:"validation_error,omitempty"`
}

func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), status)
}

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	// Dir is the directory to scan for library files.
	Dir string
	// IncludeInvalid keeps sources that failed validation in the result.
	IncludeInvalid bool
}

// sqliteHeader is the 16-byte magic at the start of every SQLite file.
var sqliteHeader = []byte("SQLite format 3\x00")

// DetectType classifies a library file by extension.
func DetectType(path string) (SourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return SourceTypeJSONL, true
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, true
	default:
		return "", false
	}
}

// Describe stats and validates a single library file.
func Describe(path string) (DataSource, error) {
	srcType, ok := DetectType(path)
	if !ok {
		return DataSource{}, fmt.Errorf("unrecognized library format: %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat %s: %w", abs, err)
	}

	src := DataSource{
		Type:    srcType,
		Path:    abs,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	switch srcType {
	case SourceTypeSQLite:
		src.Priority = PrioritySQLite
	case SourceTypeJSONL:
		src.Priority = PriorityJSONL
	}

	validate(&src)
	return src, nil
}

// Discover scans a directory for library sources and validates each.
func Discover(opts DiscoverOptions) ([]DataSource, error) {
	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.Dir, err)
	}

	var sources []DataSource
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := DetectType(entry.Name()); !ok {
			continue
		}
		src, err := Describe(filepath.Join(opts.Dir, entry.Name()))
		if err != nil {
			continue
		}
		if !src.Valid && !opts.IncludeInvalid {
			continue
		}
		sources = append(sources, src)
	}

	sort.Slice(sources, func(i, j int) bool {
		return betterSource(sources[i], sources[j])
	})
	return sources, nil
}

// SelectBest returns the freshest valid source.
func SelectBest(sources []DataSource) (DataSource, error) {
	var best DataSource
	found := false
	for _, s := range sources {
		if !s.Valid {
			continue
		}
		if !found || betterSource(s, best) {
			best = s
			found = true
		}
	}
	if !found {
		return DataSource{}, fmt.Errorf("no valid library source")
	}
	return best, nil
}

// betterSource orders by freshness, then priority, then path for
// determinism.
func betterSource(a, b DataSource) bool {
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Path < b.Path
}

func validate(s *DataSource) {
	if s.Size == 0 {
		s.Valid = false
		s.ValidationError = "empty file"
		return
	}

	switch s.Type {
	case SourceTypeSQLite:
		f, err := os.Open(s.Path)
		if err != nil {
			s.ValidationError = err.Error()
			return
		}
		defer f.Close()

		header := make([]byte, len(sqliteHeader))
		if _, err := f.Read(header); err != nil || !bytes.Equal(header, sqliteHeader) {
			s.ValidationError = "not a SQLite database"
			return
		}
		s.Valid = true

	case SourceTypeJSONL:
		f, err := os.Open(s.Path)
		if err != nil {
			s.ValidationError = err.Error()
			return
		}
		f.Close()
		s.Valid = true

	default:
		s.ValidationError = fmt.Sprintf("unknown source type %q", s.Type)
	}
}
