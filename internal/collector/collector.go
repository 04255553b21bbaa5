package collector

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"StockLens/internal/model"

	"github.com/rs/zerolog"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Table *model.Table
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDaily(_ context.Context, symbol string, start, end time.Time) (*model.Table, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Table != nil {
		if m.Table.Empty() {
			return nil, &EmptyResultError{Symbol: symbol, Start: start, End: end}
		}
		return m.Table, nil
	}
	return generateMockBars(symbol, m.Price, start, end)
}

// generateMockBars creates one bar per weekday in [start, end).
func generateMockBars(symbol string, basePrice float64, start, end time.Time) (*model.Table, error) {
	table := model.NewTable(model.NewHierarchicalSchema(symbol, model.OHLCVFields...))
	i := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%10-5)*0.001)
		if err := table.Append(day, p*0.999, p*1.005, p*0.995, p, 1000000); err != nil {
			return nil, err
		}
		i++
	}
	return table, nil
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	// Fetcher is the market data source.
	Fetcher Fetcher
	// Symbol is the provider symbol code, e.g. 304100.KQ.
	Symbol string
	// Name is the display name used in the output file name.
	Name string
	// Start is the first requested date.
	Start time.Time
	// End is the exclusive end of the requested range.
	End time.Time
	// OutputDir is where the raw CSV is written.
	OutputDir string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Result is a successful collection.
type Result struct {
	Table  *model.Table
	Path   string
	Source string
}

// Collector fetches the raw series and persists it.
type Collector struct {
	cfg *CollectorConfig
}

// NewCollector creates a new Collector.
func NewCollector(cfg *CollectorConfig) *Collector {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return &Collector{cfg: cfg}
}

// OutputPath returns where the raw CSV for the configured symbol is written.
func (c *Collector) OutputPath() string {
	return filepath.Join(c.cfg.OutputDir, FileName(c.cfg.Name, c.cfg.Symbol, c.cfg.Start.Year()))
}

// Collect fetches the configured range and writes the untransformed result
// to OutputPath. An empty result is returned as an *EmptyResultError and
// nothing is written.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	cfg := c.cfg
	cfg.Logger.Info().Str("source", cfg.Fetcher.Name()).Str("symbol", cfg.Symbol).
		Str("start", cfg.Start.Format(model.DateLayout)).Str("end", cfg.End.Format(model.DateLayout)).
		Msg("fetching daily bars")

	table, err := cfg.Fetcher.FetchDaily(ctx, cfg.Symbol, cfg.Start, cfg.End)
	if err != nil {
		var fe *FetchError
		if !errors.Is(err, ErrEmptyResult) && !errors.As(err, &fe) {
			err = &FetchError{Symbol: cfg.Symbol, Op: cfg.Fetcher.Name() + " fetch", Err: err}
		}
		return nil, err
	}
	if table == nil || table.Empty() {
		return nil, &EmptyResultError{Symbol: cfg.Symbol, Start: cfg.Start, End: cfg.End}
	}

	path := c.OutputPath()
	if err := WriteCSVFile(path, table); err != nil {
		return nil, &FetchError{Symbol: cfg.Symbol, Op: "persist csv", Err: err}
	}
	cfg.Logger.Info().Int("rows", table.Len()).Str("path", path).Msg("raw data saved")

	return &Result{Table: table, Path: path, Source: cfg.Fetcher.Name()}, nil
}
