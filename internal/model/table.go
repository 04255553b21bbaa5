package model

import (
	"fmt"
	"time"
)

// Standard OHLCV field labels.
const (
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"
)

// OHLCVFields lists the bar fields in their canonical column order.
var OHLCVFields = []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}

// Schema describes the column labelling of a raw Table. It is either a
// FlatSchema or a HierarchicalSchema and is fixed when the table is built.
type Schema interface {
	// Fields returns the level-0 (field name) label of every column.
	Fields() []string
	// Width returns the number of columns.
	Width() int

	schema()
}

// FlatSchema is a single-level column labelling.
type FlatSchema struct {
	Columns []string
}

func (s FlatSchema) Fields() []string {
	out := make([]string, len(s.Columns))
	copy(out, s.Columns)
	return out
}

func (s FlatSchema) Width() int { return len(s.Columns) }
func (FlatSchema) schema()      {}

// ColumnKey is a two-level column label, a field paired with a ticker.
type ColumnKey struct {
	Field  string
	Ticker string
}

// HierarchicalSchema is a two-level (field, ticker) column labelling, the shape
// providers return for single symbol downloads.
type HierarchicalSchema struct {
	Columns []ColumnKey
}

func (s HierarchicalSchema) Fields() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Field
	}
	return out
}

// Tickers returns the level-1 label of every column.
func (s HierarchicalSchema) Tickers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Ticker
	}
	return out
}

func (s HierarchicalSchema) Width() int { return len(s.Columns) }
func (HierarchicalSchema) schema()      {}

// NewHierarchicalSchema labels every field with the same ticker.
func NewHierarchicalSchema(ticker string, fields ...string) HierarchicalSchema {
	cols := make([]ColumnKey, len(fields))
	for i, f := range fields {
		cols[i] = ColumnKey{Field: f, Ticker: ticker}
	}
	return HierarchicalSchema{Columns: cols}
}

// Table is the untransformed fetch result: a date index and row-major cells.
type Table struct {
	Schema Schema
	Index  []time.Time
	Rows   [][]float64
}

// NewTable creates an empty table with the given schema.
func NewTable(schema Schema) *Table {
	return &Table{Schema: schema}
}

// Append adds a row. The number of values must match the schema width.
func (t *Table) Append(date time.Time, values ...float64) error {
	if len(values) != t.Schema.Width() {
		return fmt.Errorf("row %s has %d values, schema expects %d",
			date.Format(DateLayout), len(values), t.Schema.Width())
	}
	row := make([]float64, len(values))
	copy(row, values)
	t.Index = append(t.Index, date)
	t.Rows = append(t.Rows, row)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Index) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Index) == 0 }

// ColumnIndex returns the position of the first column whose field label is
// field, or -1.
func (t *Table) ColumnIndex(field string) int {
	for i, f := range t.Schema.Fields() {
		if f == field {
			return i
		}
	}
	return -1
}

// Column returns the values of the named field column.
func (t *Table) Column(field string) ([]float64, error) {
	idx := t.ColumnIndex(field)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", field)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Head returns a table holding at most the first n rows. Rows are shared.
func (t *Table) Head(n int) *Table {
	if n > t.Len() {
		n = t.Len()
	}
	if n < 0 {
		n = 0
	}
	return &Table{Schema: t.Schema, Index: t.Index[:n], Rows: t.Rows[:n]}
}
