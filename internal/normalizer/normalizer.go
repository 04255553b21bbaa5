package normalizer

import (
	"fmt"
	"math"
	"sort"

	"StockLens/internal/model"
)

// Normalize collapses a hierarchical (field, ticker) column scheme into flat
// field labels. Rows are shared with the input. Flat tables are returned
// unchanged.
func Normalize(t *model.Table) *model.Table {
	hs, ok := t.Schema.(model.HierarchicalSchema)
	if !ok {
		return t
	}
	return &model.Table{
		Schema: model.FlatSchema{Columns: hs.Fields()},
		Index:  t.Index,
		Rows:   t.Rows,
	}
}

// ToSeries maps the OHLCV columns of a flat table into a PriceSeries sorted by
// date. Columns may appear in any order; extra columns are ignored.
func ToSeries(t *model.Table, symbol, name string) (model.PriceSeries, error) {
	if _, ok := t.Schema.(model.FlatSchema); !ok {
		return model.PriceSeries{}, fmt.Errorf("table schema %T is not flat", t.Schema)
	}

	idx := make(map[string]int, len(model.OHLCVFields))
	for _, field := range model.OHLCVFields {
		i := t.ColumnIndex(field)
		if i < 0 {
			return model.PriceSeries{}, fmt.Errorf("missing %s column", field)
		}
		idx[field] = i
	}

	rows := make([]model.Observation, t.Len())
	for i, values := range t.Rows {
		volume := values[idx[model.FieldVolume]]
		if math.IsNaN(volume) {
			volume = 0
		}
		rows[i] = model.Observation{OHLCV: model.OHLCV{
			Time:   t.Index[i],
			Open:   values[idx[model.FieldOpen]],
			High:   values[idx[model.FieldHigh]],
			Low:    values[idx[model.FieldLow]],
			Close:  values[idx[model.FieldClose]],
			Volume: int64(volume),
		}}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	for i := 1; i < len(rows); i++ {
		if rows[i].Time.Equal(rows[i-1].Time) {
			return model.PriceSeries{}, fmt.Errorf("duplicate date %s", rows[i].Time.Format(model.DateLayout))
		}
	}

	return model.PriceSeries{Symbol: symbol, Name: name, Rows: rows}, nil
}
