package csvsink

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/hypersoph/json2tab/rowbuffer"
)

func TestOpenWritesPlainCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")

	fs := NewFileSet()
	sink, err := fs.Open("a", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sink.WriteHeader([]string{"id", "a.0"}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := sink.WriteRow(rowbuffer.Row{"1", "x"}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open result: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	want := []string{"id,a.0", "1,x"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestOpenGzipSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv.gz")

	fs := NewFileSet()
	sink, err := fs.Open("a", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = sink.WriteHeader([]string{"id"})
	_ = sink.WriteRow(rowbuffer.Row{"1"})
	if err := fs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open result: %v", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gr.Close()

	sc := bufio.NewScanner(gr)
	sc.Scan()
	if got := sc.Text(); got != "id" {
		t.Fatalf("header = %q, want %q", got, "id")
	}
}
