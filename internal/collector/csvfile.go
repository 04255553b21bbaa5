package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"StockLens/internal/model"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Header labels of the multi-row CSV layout.
const (
	priceLabel  = "Price"
	tickerLabel = "Ticker"
	dateLabel   = "Date"
)

// FileName returns the CSV file name for a symbol, e.g. "솔트룩스_304100_KQ_2025.csv".
func FileName(name, symbol string, year int) string {
	return fmt.Sprintf("%s_%s_%d.csv", name, strings.ReplaceAll(symbol, ".", "_"), year)
}

func formatCell(field string, v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if field == model.FieldVolume {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes table as UTF-8 with a byte order mark. Hierarchical tables
// get the three-row Price/Ticker/Date header, flat tables a single Date row.
func WriteCSV(w io.Writer, table *model.Table) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	writer := csv.NewWriter(bw)

	fields := table.Schema.Fields()
	switch s := table.Schema.(type) {
	case model.HierarchicalSchema:
		header := append([]string{priceLabel}, fields...)
		tickers := append([]string{tickerLabel}, s.Tickers()...)
		dates := make([]string, len(fields)+1)
		dates[0] = dateLabel
		for _, rec := range [][]string{header, tickers, dates} {
			if err := writer.Write(rec); err != nil {
				return err
			}
		}
	case model.FlatSchema:
		if err := writer.Write(append([]string{dateLabel}, fields...)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported schema %T", table.Schema)
	}

	for i, row := range table.Rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, table.Index[i].Format(model.DateLayout))
		for j, v := range row {
			rec = append(rec, formatCell(fields[j], v))
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return bw.Close()
}

// WriteCSVFile writes table to path, creating parent directories.
func WriteCSVFile(path string, table *model.Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseDate(s string) (time.Time, error) {
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	return time.Parse(model.DateLayout, s)
}

func parseCell(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadCSV reads a table written by WriteCSV or any Date-indexed OHLCV CSV. A
// leading byte order mark is optional. The header shape decides the schema.
func ReadCSV(r io.Reader) (*model.Table, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, errors.New("csv has no header")
	}

	var schema model.Schema
	body := records[1:]
	header := records[0]
	if header[0] == priceLabel && len(records) > 1 && records[1][0] == tickerLabel {
		tickers := records[1]
		if len(tickers) != len(header) {
			return nil, errors.New("ticker row does not match header width")
		}
		cols := make([]model.ColumnKey, len(header)-1)
		for i := range cols {
			cols[i] = model.ColumnKey{Field: header[i+1], Ticker: tickers[i+1]}
		}
		schema = model.HierarchicalSchema{Columns: cols}
		body = records[2:]
		if len(body) > 0 && body[0][0] == dateLabel {
			body = body[1:]
		}
	} else {
		schema = model.FlatSchema{Columns: append([]string(nil), header[1:]...)}
	}

	table := model.NewTable(schema)
	for n, rec := range body {
		if len(rec) != schema.Width()+1 {
			return nil, fmt.Errorf("row %d has %d cells, want %d", n+1, len(rec), schema.Width()+1)
		}
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		values := make([]float64, schema.Width())
		for i, cell := range rec[1:] {
			if values[i], err = parseCell(cell); err != nil {
				return nil, fmt.Errorf("row %d: %w", n+1, err)
			}
		}
		if err := table.Append(date, values...); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// CSVFetcher serves a previously saved CSV file as the fetch result.
type CSVFetcher struct {
	Path string
}

// NewCSVFetcher creates a fetcher backed by the CSV file at path.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path}
}

func (f *CSVFetcher) Name() string { return "csv" }

// FetchDaily loads the file and keeps the rows dated in [start, end).
func (f *CSVFetcher) FetchDaily(_ context.Context, symbol string, start, end time.Time) (*model.Table, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "csv open", Err: err}
	}
	defer file.Close()

	all, err := ReadCSV(file)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "csv decode", Err: err}
	}

	table := model.NewTable(all.Schema)
	for i, date := range all.Index {
		if date.Before(start) || !date.Before(end) {
			continue
		}
		if err := table.Append(date, all.Rows[i]...); err != nil {
			return nil, &FetchError{Symbol: symbol, Op: "csv decode", Err: err}
		}
	}
	if table.Empty() {
		return nil, &EmptyResultError{Symbol: symbol, Start: start, End: end}
	}
	return table, nil
}
