package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"StockLens/internal/model"

	"github.com/peterldowns/testy/assert"
)

// Bars open at 09:00 KST (00:00 UTC). The third timestamp is a null bar and
// the last one a second bar for 2025-01-06.
const chartBody = `{"chart":{"result":[{
	"meta":{"symbol":"304100.KQ","exchangeTimezoneName":"Asia/Seoul","timezone":"KST","gmtoffset":32400},
	"timestamp":[1735776000,1735862400,1735948800,1736121600,1736132400],
	"indicators":{"quote":[{
		"open":[100,102,null,99,98],
		"high":[103,104,null,101,100],
		"low":[99,100,null,97,96],
		"close":[102,101,null,98,97],
		"volume":[1000,2000,null,3000,3500]
	}]}
}],"error":null}}`

// The first bar has no close, the second carries a 2:1 split adjustment.
const partialBody = `{"chart":{"result":[{
	"meta":{"exchangeTimezoneName":"Asia/Seoul"},
	"timestamp":[1735776000,1735862400],
	"indicators":{
		"quote":[{"open":[100,102],"high":[103,104],"low":[99,100],"close":[null,101],"volume":[1000,null]}],
		"adjclose":[{"adjclose":[null,50.5]}]
	}
}],"error":null}}`

const notFoundBody = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseChart(t *testing.T) {
	start, end := date(2025, 1, 1), date(2025, 12, 31)

	table, err := parseChart([]byte(chartBody), "304100.KQ", start, end)
	assert.NoError(t, err)

	// Ensure the null bar is skipped and the duplicate date keeps the later bar.
	assert.Equal(t, table.Len(), 3)
	assert.Equal(t, table.Index, []time.Time{date(2025, 1, 2), date(2025, 1, 3), date(2025, 1, 6)})
	assert.Equal(t, table.Rows[2], []float64{98, 100, 96, 97, 3500})

	schema, ok := table.Schema.(model.HierarchicalSchema)
	assert.True(t, ok)
	assert.Equal(t, schema.Fields(), model.OHLCVFields)
	assert.Equal(t, schema.Tickers()[0], "304100.KQ")

	// Ensure the end of the range is exclusive.
	table, err = parseChart([]byte(chartBody), "304100.KQ", start, date(2025, 1, 6))
	assert.NoError(t, err)
	assert.Equal(t, table.Len(), 2)

	// Ensure null cells stay missing instead of becoming zero prices.
	table, err = parseChart([]byte(partialBody), "304100.KQ", start, end)
	assert.NoError(t, err)
	assert.Equal(t, table.Len(), 2)
	assert.Equal(t, table.Rows[0][:3], []float64{100, 103, 99})
	assert.True(t, math.IsNaN(table.Rows[0][3]))

	// Ensure prices follow the adjusted close.
	assert.Equal(t, table.Rows[1][:4], []float64{51, 52, 50, 50.5})
	assert.True(t, math.IsNaN(table.Rows[1][4]))

	// Ensure a result without timestamps yields an empty table.
	table, err = parseChart([]byte(`{"chart":{"result":[{"meta":{}}],"error":null}}`), "X", start, end)
	assert.NoError(t, err)
	assert.True(t, table.Empty())

	// Ensure malformed payloads are rejected.
	_, err = parseChart([]byte(`{"chart":`), "X", start, end)
	assert.Error(t, err)

	_, err = parseChart([]byte(`{"chart":{"result":[{"timestamp":[1735776000],"indicators":{"quote":[{"open":[],"high":[],"low":[],"close":[],"volume":[]}]}}]}}`), "X", start, end)
	assert.Error(t, err)
}

func TestYahooFetcher(t *testing.T) {
	start, end := date(2025, 1, 1), date(2025, 12, 31)

	var gotPath, gotPeriod1, gotPeriod2, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPeriod1 = r.URL.Query().Get("period1")
		gotPeriod2 = r.URL.Query().Get("period2")
		gotInterval = r.URL.Query().Get("interval")

		switch r.URL.Path {
		case "/v8/finance/chart/304100.KQ":
			w.Write([]byte(chartBody))
		case "/v8/finance/chart/000000.KQ":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFoundBody))
		case "/v8/finance/chart/EMPTY":
			w.Write([]byte(`{"chart":{"result":[{"meta":{},"indicators":{"quote":[{}]}}],"error":null}}`))
		case "/v8/finance/chart/LIMIT":
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Too Many Requests"))
		default:
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`))
		}
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", nil)
	assert.Equal(t, f.Name(), "yahoo")

	// Ensure bars can be fetched.
	table, err := f.FetchDaily(context.Background(), "304100.KQ", start, end)
	assert.NoError(t, err)
	assert.Equal(t, table.Len(), 3)
	assert.Equal(t, gotPath, "/v8/finance/chart/304100.KQ")
	assert.Equal(t, gotPeriod1, strconv.FormatInt(start.Unix(), 10))
	assert.Equal(t, gotPeriod2, strconv.FormatInt(end.Unix(), 10))
	assert.Equal(t, gotInterval, "1d")

	// Ensure unknown symbols are reported as empty results.
	_, err = f.FetchDaily(context.Background(), "000000.KQ", start, end)
	assert.True(t, errors.Is(err, ErrEmptyResult))
	var empty *EmptyResultError
	assert.True(t, errors.As(err, &empty))
	assert.Equal(t, empty.Symbol, "000000.KQ")

	_, err = f.FetchDaily(context.Background(), "EMPTY", start, end)
	assert.True(t, errors.Is(err, ErrEmptyResult))

	// Ensure provider and transport failures are fetch errors.
	var fe *FetchError
	_, err = f.FetchDaily(context.Background(), "LIMIT", start, end)
	assert.True(t, errors.As(err, &fe))
	assert.False(t, errors.Is(err, ErrEmptyResult))

	_, err = f.FetchDaily(context.Background(), "AUTH", start, end)
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, fe.Op, "yahoo api")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.FetchDaily(ctx, "304100.KQ", start, end)
	assert.True(t, errors.As(err, &fe))
}
