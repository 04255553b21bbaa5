package recorder

import (
	"time"

	"StockLens/internal/model"
)

// RunSnapshot holds everything recorded for one analysis run.
type RunSnapshot struct {
	ID        string
	Timestamp time.Time
	Symbol    string
	Name      string
	Start     time.Time
	End       time.Time
	CSVPath   string
	Series    model.PriceSeries // derived series
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	Close() error
}
