package collector

import (
	"context"
	"time"

	"StockLens/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDaily returns the daily bars of symbol for dates in [start, end) as
	// an untransformed table. Implementations return a *FetchError on failure.
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.Table, error)
	Name() string
}
