// Package runner wires the schema builder, flattener, and file set together
// into the end-to-end conversion the CLI exposes. It is the thin
// orchestration layer the components themselves know nothing about.
package runner

import (
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/hypersoph/json2tab/csvsink"
	"github.com/hypersoph/json2tab/flatten"
	"github.com/hypersoph/json2tab/jsonevent"
	"github.com/hypersoph/json2tab/mapping"
	"github.com/hypersoph/json2tab/schema"
)

// Options configures one end-to-end run.
type Options struct {
	FilePath    string
	OutDir      string
	ChunkSize   int
	Identifiers []string
	Tables      []string
	Excludes    []string
	All         bool
	Compress    bool
	MappingFile string
	NoMap       bool

	Logger      *slog.Logger
	ProgressOut io.Writer
}

// Run executes one full conversion: schema discovery (or a reused mapping),
// then flattening into one CSV per retained table.
func Run(opts Options) error {
	if err := validate(opts); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progressOut := opts.ProgressOut
	if progressOut == nil {
		progressOut = os.Stderr
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", opts.OutDir, err)
	}

	stem := inputStem(opts.FilePath)
	open := func() (io.ReadCloser, error) { return openInput(opts.FilePath) }

	var (
		tables      map[string][]string
		order       []string
		recordCount int
	)

	if opts.MappingFile != "" {
		doc, err := mapping.Load(opts.MappingFile)
		if err != nil {
			return err
		}
		r, err := open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", opts.FilePath, err)
		}
		keys, err := mapping.TopLevelKeys(r)
		r.Close()
		if err != nil {
			return fmt.Errorf("scanning top-level keys of %s: %w", opts.FilePath, err)
		}
		if err := mapping.Validate(doc, keys); err != nil {
			return err
		}
		tables = doc
		order = sortedKeys(doc)
		recordCount = -1 // unknown without running pass 2; shown as a spinner
	} else {
		selection, err := resolveSelection(opts, open)
		if err != nil {
			return err
		}
		result, err := schema.Build(open, selection, opts.Identifiers, func(err error) {
			logger.Warn("schema discovery", "error", err)
		})
		if err != nil {
			return err
		}
		if len(result.RemovedEmpty) > 0 {
			logger.Info("dropping tables with no data columns", "tables", result.RemovedEmpty)
		}
		tables = result.Tables
		order = result.Order
		recordCount = result.RecordCount
	}

	if len(order) == 0 {
		return fmt.Errorf("no tables retained for %s", opts.FilePath)
	}

	sinks := csvsink.NewFileSet()
	ext := "csv"
	if opts.Compress {
		ext = "csv.gz"
	}
	for _, table := range order {
		path := filepath.Join(opts.OutDir, fmt.Sprintf("%s_%s.%s", stem, table, ext))
		if _, err := sinks.Open(table, path); err != nil {
			sinks.Close()
			return err
		}
	}
	defer sinks.Close()

	bar := progressbar.NewOptions(recordCount,
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionSetDescription("flattening "+filepath.Base(opts.FilePath)))

	r, err := open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", opts.FilePath, err)
	}
	defer r.Close()

	fl := flatten.New(flatten.Config{
		Tables:      tables,
		Order:       order,
		Identifiers: opts.Identifiers,
		ChunkSize:   opts.ChunkSize,
		Sinks:       sinks,
		Logger:      logger,
		OnRecord:    func() { bar.Add(1) },
	})
	if err := fl.Run(jsonevent.NewDecoder(r)); err != nil {
		return err
	}
	bar.Finish()

	for _, w := range fl.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if err := sinks.Close(); err != nil {
		return err
	}

	if !opts.NoMap {
		mapPath := filepath.Join(opts.OutDir, stem+"_mappings.json")
		if err := mapping.Save(mapPath, mapping.Document(tables)); err != nil {
			return err
		}
	}
	return nil
}

func validate(opts Options) error {
	if !strings.HasSuffix(opts.FilePath, ".json") && !strings.HasSuffix(opts.FilePath, ".json.gz") {
		return fmt.Errorf("input file %q must end in .json or .json.gz", opts.FilePath)
	}
	exclusive := 0
	if len(opts.Tables) > 0 {
		exclusive++
	}
	if len(opts.Excludes) > 0 {
		exclusive++
	}
	if opts.All {
		exclusive++
	}
	if exclusive > 1 {
		return fmt.Errorf("-t/--table, -e/--exclude, and -a/--all are mutually exclusive")
	}
	if opts.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", opts.ChunkSize)
	}
	return nil
}

// resolveSelection turns the CLI's table/exclude/all flags into the
// concrete inclusion list schema.Build expects (nil/empty means "all").
func resolveSelection(opts Options, open schema.Opener) ([]string, error) {
	if len(opts.Tables) > 0 {
		return opts.Tables, nil
	}
	if len(opts.Excludes) == 0 {
		return nil, nil
	}
	r, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", opts.FilePath, err)
	}
	keys, err := mapping.TopLevelKeys(r)
	r.Close()
	if err != nil {
		return nil, fmt.Errorf("scanning top-level keys of %s: %w", opts.FilePath, err)
	}
	excluded := make(map[string]bool, len(opts.Excludes))
	for _, e := range opts.Excludes {
		excluded[e] = true
	}
	identifiers := make(map[string]bool, len(opts.Identifiers))
	for _, id := range opts.Identifiers {
		identifiers[id] = true
	}
	var selection []string
	for _, k := range keys {
		if excluded[k] || identifiers[k] {
			continue
		}
		selection = append(selection, k)
	}
	return selection, nil
}

func sortedKeys(doc mapping.Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// inputStem strips the .json or .json.gz suffix and any directory
// component from path.
func inputStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".json")
	return base
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}
