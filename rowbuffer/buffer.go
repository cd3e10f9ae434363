// Package rowbuffer accumulates flattened rows per table between CSV
// flushes. It is the in-memory staging area that sits between the
// flattener and the CSV sink.
package rowbuffer

// Row is one row's worth of column values, indexed by a table's frozen
// column order.
type Row []string

// Buffer collects rows per table and tracks how many rows are currently
// held across every table, so a caller can decide when to flush without
// summing per-table queues itself.
type Buffer struct {
	tables map[string][]Row
	size   int
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{tables: map[string][]Row{}}
}

// Append adds row to table's queue.
func (b *Buffer) Append(table string, row Row) {
	b.tables[table] = append(b.tables[table], row)
	b.size++
}

// Rows returns table's currently buffered rows, in append order.
func (b *Buffer) Rows(table string) []Row {
	return b.tables[table]
}

// Tables returns the set of tables that currently have buffered rows.
func (b *Buffer) Tables() []string {
	names := make([]string, 0, len(b.tables))
	for t, rows := range b.tables {
		if len(rows) > 0 {
			names = append(names, t)
		}
	}
	return names
}

// Size is the total row count across every table.
func (b *Buffer) Size() int {
	return b.size
}

// Reset drops every buffered row and resets the size counter, leaving the
// Buffer ready to accumulate the next chunk.
func (b *Buffer) Reset() {
	b.tables = map[string][]Row{}
	b.size = 0
}
