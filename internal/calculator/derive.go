package calculator

import (
	"errors"

	"StockLens/internal/model"
)

// ErrEmptySeries is returned when derived values are requested for a series
// without observations.
var ErrEmptySeries = errors.New("price series is empty")

// CumulativeReturn returns the percentage change of every close relative to
// the first one. The first entry is exactly zero.
func CumulativeReturn(closes []float64) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	base := closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = (closes[i] - base) / base * 100
	}
	return out
}

// Derive returns a copy of series with MA5, MA20 and the cumulative return
// filled in. The input is not modified.
func Derive(series model.PriceSeries) (model.PriceSeries, error) {
	if series.Empty() {
		return model.PriceSeries{}, ErrEmptySeries
	}

	out := series.Clone()
	closes := out.Closes()
	ma5 := SMASeries(closes, ShortWindow)
	ma20 := SMASeries(closes, LongWindow)
	ret := CumulativeReturn(closes)

	for i := range out.Rows {
		out.Rows[i].MA5 = ma5[i]
		out.Rows[i].MA20 = ma20[i]
		out.Rows[i].CumulativeReturn = ret[i]
	}
	return out, nil
}

// Change describes the latest close relative to the one before it.
type Change struct {
	Current     float64
	Previous    float64
	HasPrevious bool
	// Relative is (Current-Previous)/Previous, zero without a previous close.
	Relative float64
}

// LatestChange returns the change between the last two closes of series.
func LatestChange(series model.PriceSeries) (Change, error) {
	if series.Empty() {
		return Change{}, ErrEmptySeries
	}

	n := series.Len()
	c := Change{Current: series.Rows[n-1].Close}
	if n < 2 {
		return c, nil
	}
	c.Previous = series.Rows[n-2].Close
	c.HasPrevious = true
	if c.Previous != 0 {
		c.Relative = (c.Current - c.Previous) / c.Previous
	}
	return c, nil
}
