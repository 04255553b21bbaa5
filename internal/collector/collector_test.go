package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"StockLens/internal/model"

	"github.com/peterldowns/testy/assert"
)

func newTestCollector(dir string, fetcher Fetcher) *Collector {
	return NewCollector(&CollectorConfig{
		Fetcher:   fetcher,
		Symbol:    "304100.KQ",
		Name:      "솔트룩스",
		Start:     date(2025, 1, 1),
		End:       date(2025, 12, 31),
		OutputDir: dir,
	})
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	c := newTestCollector(dir, &MockFetcher{Price: 10000})

	res, err := c.Collect(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, res.Source, "mock")
	assert.Equal(t, res.Path, filepath.Join(dir, "솔트룩스_304100_KQ_2025.csv"))
	assert.GreaterThan(t, res.Table.Len(), 200)

	// Ensure the persisted file reads back to the fetched table.
	f, err := os.Open(res.Path)
	assert.NoError(t, err)
	defer f.Close()
	saved, err := ReadCSV(f)
	assert.NoError(t, err)
	assert.Equal(t, saved.Len(), res.Table.Len())
	assert.Equal(t, saved.Index[0], res.Table.Index[0])
}

func TestGenerateMockBars(t *testing.T) {
	// 2025-01-03 is a Friday, so the range holds Fri and Mon only.
	table, err := generateMockBars("304100.KQ", 1000, date(2025, 1, 3), date(2025, 1, 7))
	assert.NoError(t, err)
	assert.Equal(t, table.Index, []time.Time{date(2025, 1, 3), date(2025, 1, 6)})
	assert.Equal(t, len(table.Rows[0]), len(model.OHLCVFields))
	assert.Equal(t, table.Rows[0][3], float64(995))
}

func TestCollectFailures(t *testing.T) {
	dir := t.TempDir()

	// Ensure an empty result is reported and nothing is written.
	empty := model.NewTable(model.NewHierarchicalSchema("304100.KQ", model.OHLCVFields...))
	c := newTestCollector(dir, &MockFetcher{Table: empty})
	_, err := c.Collect(context.Background())
	assert.True(t, errors.Is(err, ErrEmptyResult))
	_, statErr := os.Stat(c.OutputPath())
	assert.True(t, os.IsNotExist(statErr))

	// Ensure untyped fetcher errors are wrapped as fetch errors.
	cause := errors.New("connection reset")
	c = newTestCollector(dir, &MockFetcher{Err: cause})
	_, err = c.Collect(context.Background())
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
	assert.True(t, errors.Is(err, cause))

	// Ensure typed errors pass through unchanged.
	typed := &FetchError{Symbol: "304100.KQ", Op: "yahoo fetch", Err: cause}
	c = newTestCollector(dir, &MockFetcher{Err: typed})
	_, err = c.Collect(context.Background())
	assert.True(t, err == error(typed))
}
