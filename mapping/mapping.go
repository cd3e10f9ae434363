// Package mapping persists the frozen table-to-columns mapping produced by
// schema discovery, so a later run can skip both passes entirely.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hypersoph/json2tab/jsonevent"
	"github.com/hypersoph/json2tab/pathtrack"
)

// Document is the on-disk form of a frozen mapping: table name to ordered
// column list.
type Document map[string][]string

// Save writes doc to path as indented JSON.
func Save(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating mapping file %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("writing mapping file %s: %w", path, err)
	}
	return nil
}

// Load reads a previously saved mapping document.
func Load(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing mapping file %s: %w", path, err)
	}
	return doc, nil
}

// Validate reports a configuration error if doc names any table that is not
// among topLevelKeys -- a loaded mapping only makes sense against an input
// whose top-level keys it actually describes.
func Validate(doc Document, topLevelKeys []string) error {
	present := make(map[string]bool, len(topLevelKeys))
	for _, k := range topLevelKeys {
		present[k] = true
	}
	for table := range doc {
		if !present[table] {
			return fmt.Errorf("mapping table %q is not a top-level key of the input", table)
		}
	}
	return nil
}

// TopLevelKeys scans the first top-level object of r and returns its map
// keys in first-seen order, for validating a loaded mapping document
// against the input it is about to be applied to.
func TopLevelKeys(r io.Reader) ([]string, error) {
	dec := jsonevent.NewDecoder(r)
	var keys []string
	for {
		ev, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return keys, nil
			}
			return keys, err
		}
		if ev.Kind == pathtrack.MapKey && ev.Prefix == "" {
			if key, ok := ev.Value.(string); ok {
				keys = append(keys, key)
			}
			continue
		}
		if ev.IsObjectBoundary() {
			return keys, nil
		}
	}
}
