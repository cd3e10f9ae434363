// Package schema implements the two-pass schema discovery that precedes
// flattening: pass one finds the set of tables from the first top-level
// object, pass two unions every column path seen for each retained table
// across the whole input.
package schema

import (
	"errors"
	"fmt"
	"io"

	"github.com/hypersoph/json2tab/jsonevent"
	"github.com/hypersoph/json2tab/pathtrack"
)

// Opener produces a fresh reader positioned at the start of the input. It
// is called once per pass, since a gzip-compressed source cannot be seeked
// back to the beginning without being reopened.
type Opener func() (io.ReadCloser, error)

// Result is the frozen output of schema discovery.
type Result struct {
	// Tables maps a retained table name to its ordered column list,
	// identifier columns first.
	Tables map[string][]string
	// Order is table insertion order (pass-one discovery order), with
	// empty tables already removed.
	Order []string
	// RemovedEmpty lists tables dropped because pass two found no data
	// columns for them (only identifier columns, or none at all).
	RemovedEmpty []string
	// RecordCount is the number of top-level JSON objects seen in pass
	// two, used for progress reporting while flattening.
	RecordCount int
}

// orderedSet tracks first-seen insertion order alongside membership.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}}
}

func (s *orderedSet) add(v string) {
	if s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}

// Build runs both passes over open() and returns the frozen table mapping.
//
// selection is the set of top-level keys to retain as tables; an empty
// selection means "every non-identifier top-level key". identifiers are
// top-level scalar keys copied into every table's row; they are never
// themselves retained as tables.
//
// Parser errors during either pass are reported to warn (which may be nil)
// and do not abort schema discovery -- whatever was read before the error
// is kept.
func Build(open Opener, selection, identifiers []string, warn func(error)) (*Result, error) {
	if warn == nil {
		warn = func(error) {}
	}
	idSet := toSet(identifiers)
	selSet := toSet(selection)

	order, err := pass1(open, idSet, selSet, warn)
	if err != nil {
		return nil, fmt.Errorf("opening input for pass 1: %w", err)
	}

	cols := make(map[string]*orderedSet, len(order))
	for _, t := range order {
		cols[t] = newOrderedSet()
	}

	recordCount, err := pass2(open, idSet, cols, warn)
	if err != nil {
		return nil, fmt.Errorf("opening input for pass 2: %w", err)
	}

	res := &Result{
		Tables:      map[string][]string{},
		RecordCount: recordCount,
	}
	for _, t := range order {
		data := cols[t].items
		if len(data) == 0 {
			res.RemovedEmpty = append(res.RemovedEmpty, t)
			continue
		}
		columns := make([]string, 0, len(identifiers)+len(data))
		columns = append(columns, identifiers...)
		columns = append(columns, data...)
		res.Tables[t] = columns
		res.Order = append(res.Order, t)
	}
	return res, nil
}

func pass1(open Opener, idSet, selSet map[string]bool, warn func(error)) ([]string, error) {
	r, err := open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dec := jsonevent.NewDecoder(r)
	seen := map[string]bool{}
	var order []string

	for {
		ev, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				warn(fmt.Errorf("pass 1: %w", err))
			}
			break
		}
		switch {
		case isRootMapKey(ev):
			key, _ := ev.Value.(string)
			if idSet[key] {
				continue
			}
			if len(selSet) != 0 && !selSet[key] {
				continue
			}
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		case ev.IsObjectBoundary():
			return order, nil
		}
	}
	return order, nil
}

func pass2(open Opener, idSet map[string]bool, cols map[string]*orderedSet, warn func(error)) (int, error) {
	r, err := open()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	dec := jsonevent.NewDecoder(r)
	count := 0

	for {
		ev, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				warn(fmt.Errorf("pass 2: %w", err))
			}
			break
		}
		switch {
		case ev.IsScalar():
			if idSet[ev.BasePrefix] {
				continue
			}
			set, ok := cols[ev.BasePrefix]
			if !ok {
				continue
			}
			set.add(ev.Prefix)
		case ev.IsObjectBoundary():
			count++
		}
	}
	return count, nil
}

func isRootMapKey(ev jsonevent.Event) bool {
	return ev.Kind == pathtrack.MapKey && ev.Prefix == ""
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
