package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar date format used for bars, config and CSV files.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Observation is one row of a PriceSeries: a daily bar plus its derived fields.
type Observation struct {
	OHLCV

	MA5              null.Float
	MA20             null.Float
	CumulativeReturn float64 // percent, relative to the first close
}

// PriceSeries holds the daily observations of a single symbol, ascending by date.
type PriceSeries struct {
	Symbol string
	Name   string
	Rows   []Observation
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int { return len(s.Rows) }

// Empty reports whether the series has no observations.
func (s *PriceSeries) Empty() bool { return len(s.Rows) == 0 }

// Closes returns the close prices in series order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Rows))
	for i := range s.Rows {
		closes[i] = s.Rows[i].Close
	}
	return closes
}

// Dates returns the observation dates in series order.
func (s *PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Rows))
	for i := range s.Rows {
		dates[i] = s.Rows[i].Time
	}
	return dates
}

// Last returns the most recent observation. The series must not be empty.
func (s *PriceSeries) Last() Observation { return s.Rows[len(s.Rows)-1] }

// Clone returns a deep copy of the series.
func (s *PriceSeries) Clone() PriceSeries {
	rows := make([]Observation, len(s.Rows))
	copy(rows, s.Rows)
	return PriceSeries{Symbol: s.Symbol, Name: s.Name, Rows: rows}
}
