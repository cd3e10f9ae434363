package runner

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hypersoph/json2tab/mapping"
)

func TestValidateRejectsNonJSONExtension(t *testing.T) {
	err := validate(Options{FilePath: "events.ndjson", ChunkSize: 1})
	if err == nil {
		t.Fatalf("want an error for a non-.json input path")
	}
}

func TestValidateAcceptsGzippedJSON(t *testing.T) {
	err := validate(Options{FilePath: "events.json.gz", ChunkSize: 1})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsCombinedSelectionFlags(t *testing.T) {
	err := validate(Options{FilePath: "x.json", ChunkSize: 1, Tables: []string{"events"}, All: true})
	if err == nil {
		t.Fatalf("want an error when -t and -a are combined")
	}
}

func TestValidateRejectsNonPositiveChunkSize(t *testing.T) {
	err := validate(Options{FilePath: "x.json", ChunkSize: 0})
	if err == nil {
		t.Fatalf("want an error for a zero chunk size")
	}
}

func TestInputStemStripsJSONSuffix(t *testing.T) {
	if got := inputStem("/data/events.json"); got != "events" {
		t.Fatalf("inputStem = %q, want %q", got, "events")
	}
}

func TestInputStemStripsGzippedJSONSuffix(t *testing.T) {
	if got := inputStem("/data/events.json.gz"); got != "events" {
		t.Fatalf("inputStem = %q, want %q", got, "events")
	}
}

func TestResolveSelectionWithTablesFlag(t *testing.T) {
	got, err := resolveSelection(Options{Tables: []string{"events", "users"}}, nil)
	if err != nil {
		t.Fatalf("resolveSelection: %v", err)
	}
	if len(got) != 2 || got[0] != "events" || got[1] != "users" {
		t.Fatalf("got %v, want [events users]", got)
	}
}

func TestResolveSelectionWithNoFlagsReturnsNil(t *testing.T) {
	got, err := resolveSelection(Options{}, nil)
	if err != nil {
		t.Fatalf("resolveSelection: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil (meaning: all tables)", got)
	}
}

func TestResolveSelectionWithExcludesComputesComplement(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	if err := os.WriteFile(input, []byte(`{"id":"1","events":[],"users":[],"meta":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	open := func() (io.ReadCloser, error) { return os.Open(input) }

	got, err := resolveSelection(Options{
		FilePath:    input,
		Excludes:    []string{"meta"},
		Identifiers: []string{"id"},
	}, open)
	if err != nil {
		t.Fatalf("resolveSelection: %v", err)
	}
	sort.Strings(got)
	want := []string{"events", "users"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRunEndToEndProducesCSVAndMapping(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.json")
	data := `{"id":"1","events":[{"kind":"click"},{"kind":"view"}]}` +
		`{"id":"2","events":[{"kind":"click"}]}`
	if err := os.WriteFile(input, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	var stderr bytes.Buffer
	err := Run(Options{
		FilePath:    input,
		OutDir:      outDir,
		ChunkSize:   500,
		Identifiers: []string{"id"},
		ProgressOut: &stderr,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	csvPath := filepath.Join(outDir, "events_events.csv")
	rows := readCSV(t, csvPath)
	if len(rows) != 3 {
		t.Fatalf("rows = %v, want header + 2 data rows", rows)
	}
	header := rows[0]
	if header[0] != "id" {
		t.Fatalf("header = %v, want identifier column first", header)
	}

	mapPath := filepath.Join(outDir, "events_mappings.json")
	doc, err := mapping.Load(mapPath)
	if err != nil {
		t.Fatalf("loading saved mapping: %v", err)
	}
	if _, ok := doc["events"]; !ok {
		t.Fatalf("saved mapping %v missing table %q", doc, "events")
	}
}

func TestRunReusesLoadedMapping(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.json")
	data := `{"id":"1","events":[{"kind":"click"}]}`
	if err := os.WriteFile(input, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	if err := Run(Options{
		FilePath:    input,
		OutDir:      outDir,
		ChunkSize:   500,
		Identifiers: []string{"id"},
		ProgressOut: &bytes.Buffer{},
	}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	outDir2 := filepath.Join(dir, "out2")
	mapPath := filepath.Join(outDir, "events_mappings.json")
	if err := Run(Options{
		FilePath:    input,
		OutDir:      outDir2,
		ChunkSize:   500,
		Identifiers: []string{"id"},
		MappingFile: mapPath,
		NoMap:       true,
		ProgressOut: &bytes.Buffer{},
	}); err != nil {
		t.Fatalf("second Run (reused mapping): %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir2, "events_events.csv")); err != nil {
		t.Fatalf("expected CSV from reused mapping: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir2, "events_mappings.json")); err == nil {
		t.Fatalf("NoMap should have suppressed writing a new mapping file")
	}
}

func TestRunRejectsMappingNamingUnknownTable(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.json")
	if err := os.WriteFile(input, []byte(`{"id":"1","events":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	mapPath := filepath.Join(dir, "bad_mapping.json")
	if err := mapping.Save(mapPath, mapping.Document{"nonexistent": {"x"}}); err != nil {
		t.Fatal(err)
	}

	err := Run(Options{
		FilePath:    input,
		OutDir:      filepath.Join(dir, "out"),
		ChunkSize:   500,
		MappingFile: mapPath,
		ProgressOut: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatalf("want an error when the loaded mapping names a table absent from the input")
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return rows
}
