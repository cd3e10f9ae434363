// Package flatten drives the second pass: it walks a path-aware event
// stream against a frozen schema, accumulates one partial row per table,
// snapshots a row for every table at each object boundary, and flushes
// buffered rows to the file set in chunks.
package flatten

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hypersoph/json2tab/csvsink"
	"github.com/hypersoph/json2tab/jsonevent"
	"github.com/hypersoph/json2tab/rowbuffer"
)

// Config is everything the flattener needs besides the byte source itself.
type Config struct {
	// Tables maps a selected table name to its frozen, ordered columns
	// (identifiers first).
	Tables map[string][]string
	// Order is the iteration order used when writing headers and
	// snapshotting rows. Chunk flushes run concurrently per table, in no
	// fixed order.
	Order []string
	// Identifiers are top-level scalar keys copied into every row.
	Identifiers []string
	// ChunkSize is the row-buffer size that triggers a flush.
	ChunkSize int
	// Sinks holds one already-open writer per table in Order.
	Sinks *csvsink.FileSet
	// Logger receives non-fatal diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// OnRecord, if set, is called once per object boundary reached (not
	// per skipped/failed object), for progress reporting.
	OnRecord func()
}

type partialRow struct {
	values  []string
	touched []bool
}

func newPartialRow(n int) *partialRow {
	return &partialRow{values: make([]string, n), touched: make([]bool, n)}
}

func (p *partialRow) reset() {
	for i := range p.values {
		p.values[i] = ""
		p.touched[i] = false
	}
}

// Flattener runs the second pass over one input stream.
type Flattener struct {
	cfg      Config
	colIndex map[string]map[string]int
	logger   *slog.Logger

	// RecordsWritten is the number of objects whose rows were buffered;
	// objects skipped for a structural violation are not counted.
	RecordsWritten int
	// Warnings accumulates non-fatal diagnostics raised during Run.
	Warnings []error
}

// New builds a Flattener from cfg. Column lookup tables are built once so
// Run's hot loop is O(1) per scalar.
func New(cfg Config) *Flattener {
	idx := make(map[string]map[string]int, len(cfg.Tables))
	for table, cols := range cfg.Tables {
		m := make(map[string]int, len(cols))
		for i, c := range cols {
			m[c] = i
		}
		idx[table] = m
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Flattener{cfg: cfg, colIndex: idx, logger: logger.With("component", "flatten")}
}

// Run writes headers, consumes every event from dec, and flushes rows to
// the configured sinks. It returns a non-nil error only when a table in
// Order has no open sink or a writer I/O operation fails; tokenizer truncation and malformation are recorded as warnings
// and otherwise treated as a clean end of input.
func (fl *Flattener) Run(dec *jsonevent.Decoder) error {
	if err := fl.writeHeaders(); err != nil {
		return err
	}

	rows := make(map[string]*partialRow, len(fl.cfg.Order))
	for _, table := range fl.cfg.Order {
		rows[table] = newPartialRow(len(fl.cfg.Tables[table]))
	}

	idValues := make(map[string]string, len(fl.cfg.Identifiers))
	idSet := make(map[string]bool, len(fl.cfg.Identifiers))
	resetIdentifiers := func() {
		for _, id := range fl.cfg.Identifiers {
			idValues[id] = ""
			idSet[id] = false
		}
	}
	resetIdentifiers()

	buf := rowbuffer.New()
	identifierNames := make(map[string]bool, len(fl.cfg.Identifiers))
	for _, id := range fl.cfg.Identifiers {
		identifierNames[id] = true
	}

	skipObject := false

	for {
		ev, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fl.warn(fmt.Errorf("stream ended early: %w", err))
			}
			break
		}

		switch {
		case ev.IsScalar():
			if skipObject {
				continue
			}
			value := stringifyValue(ev.Value)

			if identifierNames[ev.BasePrefix] {
				if !idSet[ev.BasePrefix] {
					idValues[ev.BasePrefix] = value
					idSet[ev.BasePrefix] = true
				}
				continue
			}

			row, ok := rows[ev.BasePrefix]
			if !ok {
				continue
			}
			col, ok := fl.colIndex[ev.BasePrefix][ev.Prefix]
			if !ok {
				continue
			}
			if row.touched[col] {
				fl.warn(fmt.Errorf("structural violation: column %q written twice in one object, failing this object", ev.Prefix))
				skipObject = true
				continue
			}
			row.values[col] = value
			row.touched[col] = true

		case ev.IsObjectBoundary():
			if skipObject {
				skipObject = false
				for _, table := range fl.cfg.Order {
					rows[table].reset()
				}
				resetIdentifiers()
				continue
			}

			for _, table := range fl.cfg.Order {
				row := rows[table]
				for _, id := range fl.cfg.Identifiers {
					col := fl.colIndex[table][id]
					row.values[col] = idValues[id]
				}
				snapshot := make(rowbuffer.Row, len(row.values))
				copy(snapshot, row.values)
				buf.Append(table, snapshot)
				row.reset()
			}
			resetIdentifiers()
			fl.RecordsWritten++
			if fl.cfg.OnRecord != nil {
				fl.cfg.OnRecord()
			}

			if buf.Size() >= fl.cfg.ChunkSize {
				if err := fl.flushChunk(buf); err != nil {
					return err
				}
			}
		}
	}

	if buf.Size() > 0 {
		if err := fl.flushChunk(buf); err != nil {
			return err
		}
	}
	return fl.cfg.Sinks.Flush()
}

func (fl *Flattener) writeHeaders() error {
	for _, table := range fl.cfg.Order {
		sink, ok := fl.cfg.Sinks.Get(table)
		if !ok {
			return fmt.Errorf("no sink opened for table %q", table)
		}
		if err := sink.WriteHeader(fl.cfg.Tables[table]); err != nil {
			return fmt.Errorf("writing header for table %q: %w", table, err)
		}
	}
	return nil
}

// flushChunk dispatches one write-rows task per table with buffered rows,
// running them concurrently and blocking until every task finishes before
// the buffer is reset.
func (fl *Flattener) flushChunk(buf *rowbuffer.Buffer) error {
	var g errgroup.Group
	for _, table := range buf.Tables() {
		table := table
		rows := buf.Rows(table)
		sink, ok := fl.cfg.Sinks.Get(table)
		if !ok {
			continue
		}
		g.Go(func() error {
			for _, row := range rows {
				if err := sink.WriteRow(row); err != nil {
					return fmt.Errorf("writing row for table %q: %w", table, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	buf.Reset()
	return nil
}

func (fl *Flattener) warn(err error) {
	fl.Warnings = append(fl.Warnings, err)
	fl.logger.Warn(err.Error())
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
