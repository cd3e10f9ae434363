// Package csvsink owns the output side of flattening: one CSV writer per
// retained table, each backed by a plain or gzip-wrapped file depending on
// the destination path's suffix.
package csvsink

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hypersoph/json2tab/rowbuffer"
)

// Sink is one table's output file: a CSV writer over a plain or
// gzip-compressed os.File.
type Sink struct {
	name string
	file *os.File
	gz   *gzip.Writer
	w    *csv.Writer
}

// WriteHeader writes the column names as the first CSV row.
func (s *Sink) WriteHeader(columns []string) error {
	return s.w.Write(columns)
}

// WriteRow writes one precomputed row. encoding/csv applies standard
// quoting on its own: fields containing the delimiter, the quote
// character, or a newline are quoted, with embedded quotes doubled.
func (s *Sink) WriteRow(row rowbuffer.Row) error {
	return s.w.Write(row)
}

// Flush pushes any buffered CSV data down to the underlying file.
func (s *Sink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the sink's writers, innermost first.
func (s *Sink) Close() error {
	s.w.Flush()
	var errs []error
	if err := s.w.Error(); err != nil {
		errs = append(errs, err)
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FileSet owns every open Sink for one run, keyed by table name, and
// guarantees they are all closed together on any exit path.
type FileSet struct {
	sinks map[string]*Sink
	order []string
}

// NewFileSet returns an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{sinks: map[string]*Sink{}}
}

// Open creates path (plain, or gzip-wrapped if path ends in ".gz") and
// registers it under table.
func (fs *FileSet) Open(table, path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for table %q: %w", path, table, err)
	}

	sink := &Sink{name: table, file: f}
	if strings.HasSuffix(path, ".gz") {
		sink.gz = gzip.NewWriter(f)
		sink.w = csv.NewWriter(sink.gz)
	} else {
		sink.w = csv.NewWriter(f)
	}

	fs.sinks[table] = sink
	fs.order = append(fs.order, table)
	return sink, nil
}

// Get returns the previously opened sink for table, if any.
func (fs *FileSet) Get(table string) (*Sink, bool) {
	s, ok := fs.sinks[table]
	return s, ok
}

// Tables returns every table in the order its sink was opened.
func (fs *FileSet) Tables() []string {
	return fs.order
}

// Flush flushes every open sink.
func (fs *FileSet) Flush() error {
	var errs []error
	for _, table := range fs.order {
		if err := fs.sinks[table].Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flushing table %q: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every open sink, regardless of individual errors, and joins
// whatever errors occurred.
func (fs *FileSet) Close() error {
	var errs []error
	for _, table := range fs.order {
		if err := fs.sinks[table].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing table %q: %w", table, err))
		}
	}
	return errors.Join(errs...)
}
