package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"StockLens/internal/calculator"
	"StockLens/internal/model"

	"github.com/guregu/null/v6"
	"github.com/peterldowns/testy/assert"
)

// derivedSeries builds a derived series from (open, close) pairs.
func derivedSeries(t *testing.T, pairs ...[2]float64) model.PriceSeries {
	t.Helper()
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]model.Observation, len(pairs))
	for i, p := range pairs {
		rows[i] = model.Observation{OHLCV: model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p[0],
			High:   math.Max(p[0], p[1]) + 1,
			Low:    math.Min(p[0], p[1]) - 1,
			Close:  p[1],
			Volume: int64(1000 * (i + 1)),
		}}
	}
	series, err := calculator.Derive(model.PriceSeries{Symbol: "304100.KQ", Name: "Saltlux", Rows: rows})
	assert.NoError(t, err)
	return series
}

func TestVolumeColors(t *testing.T) {
	series := derivedSeries(t, [2]float64{100, 101}, [2]float64{101, 101}, [2]float64{101, 99})

	// Ensure equal open and close counts as an up day.
	assert.Equal(t, VolumeColors(series), []string{ColorUp, ColorUp, ColorDown})
}

func TestReturnColor(t *testing.T) {
	up := derivedSeries(t, [2]float64{100, 100}, [2]float64{100, 90}, [2]float64{90, 100})
	assert.Equal(t, ReturnColor(up), ColorUp)

	down := derivedSeries(t, [2]float64{100, 100}, [2]float64{100, 120}, [2]float64{120, 99})
	assert.Equal(t, ReturnColor(down), ColorDown)
}

func TestRowDomains(t *testing.T) {
	domains := rowDomains(rowHeights, verticalSpacing)
	assert.Equal(t, len(domains), 4)
	assert.Equal(t, domains[0][1], float64(1))
	assert.Equal(t, domains[3][0], float64(0))

	for i := range domains {
		// Ensure heights keep their relative proportions.
		height := domains[i][1] - domains[i][0]
		assert.True(t, math.Abs(height-rowHeights[i]*0.85) < 1e-9)
		if i > 0 {
			gap := domains[i-1][0] - domains[i][1]
			assert.True(t, math.Abs(gap-verticalSpacing) < 1e-9)
		}
	}
}

func TestBuild(t *testing.T) {
	_, err := Build(model.PriceSeries{}, Options{})
	assert.Error(t, err)

	pairs := make([][2]float64, 25)
	for i := range pairs {
		pairs[i] = [2]float64{100 + float64(i), 101 + float64(i)}
	}
	series := derivedSeries(t, pairs...)

	fig, err := Build(series, Options{Currency: "KRW"})
	assert.NoError(t, err)
	assert.Equal(t, len(fig.Data), 7)
	assert.Equal(t, fig.Layout.Title.Text, "<b>Saltlux (304100.KQ) 2025 Analysis</b>")
	assert.Equal(t, fig.Layout.Height, 1200)

	// Ensure the indicator card shows the latest close against the previous one.
	card := fig.Data[0]
	assert.Equal(t, card.Type, "indicator")
	assert.Equal(t, card.Mode, "number+delta")
	assert.Equal(t, *card.Value, float64(125))
	assert.Equal(t, card.Delta.Reference, float64(124))
	assert.True(t, card.Delta.Relative)
	assert.Equal(t, card.Delta.ValueFormat, ".2%")
	assert.Equal(t, card.Title.Text, "Current Price (KRW)")

	// Ensure the moving averages gap before their windows fill.
	ma5 := fig.Data[2].Y.([]null.Float)
	assert.False(t, ma5[3].Valid)
	assert.True(t, ma5[4].Valid)
	ma20 := fig.Data[3].Y.([]null.Float)
	assert.False(t, ma20[18].Valid)
	assert.True(t, ma20[19].Valid)

	// Ensure lower panels follow the price panel's x axis.
	assert.Equal(t, fig.Data[4].XAxis, "x3")
	assert.Equal(t, fig.Layout.XAxis3.Matches, "x2")
	assert.Equal(t, fig.Layout.XAxis4.Matches, "x2")
	assert.True(t, fig.Layout.XAxis2.RangeSlider.Visible)
	assert.Equal(t, fig.Data[5].Line.Color, ColorUp)
	assert.Equal(t, fig.Data[6].X, []string{"2025-01-02", "2025-01-26"})
	assert.Equal(t, fig.Data[6].Line.Dash, "dash")

	// Ensure undefined values encode as JSON nulls.
	b, err := json.Marshal(fig)
	assert.NoError(t, err)
	assert.True(t, bytes.Contains(b, []byte(`"y":[null,null,null,null,`)))

	// Ensure a single observation renders without a delta.
	single, err := Build(derivedSeries(t, [2]float64{100, 101}), Options{Title: "custom"})
	assert.NoError(t, err)
	assert.Equal(t, single.Data[0].Mode, "number")
	assert.True(t, single.Data[0].Delta == nil)
	assert.Equal(t, single.Layout.Title.Text, "custom")
}

func TestBuildMissingValues(t *testing.T) {
	// Ensure a missing first close encodes as null gaps instead of failing.
	series := derivedSeries(t, [2]float64{100, math.NaN()}, [2]float64{101, 102}, [2]float64{102, 103})
	fig, err := Build(series, Options{})
	assert.NoError(t, err)

	b, err := json.Marshal(fig)
	assert.NoError(t, err)
	assert.True(t, bytes.Contains(b, []byte(`"close":[null,102,103]`)))
	assert.Equal(t, *fig.Data[0].Value, float64(103))
	assert.Equal(t, fig.Data[0].Delta.Reference, float64(102))

	// Ensure returns off a zero base close plot as gaps.
	zero := derivedSeries(t, [2]float64{1, 0}, [2]float64{1, 2})
	fig, err = Build(zero, Options{})
	assert.NoError(t, err)
	b, err = json.Marshal(fig)
	assert.NoError(t, err)
	assert.True(t, bytes.Contains(b, []byte(`"y":[0,null]`)))

	assert.NoError(t, SaveSnapshot(filepath.Join(t.TempDir(), "gaps.png"), series))
}

func TestRender(t *testing.T) {
	series := derivedSeries(t, [2]float64{100, 101}, [2]float64{101, 99})
	fig, err := Build(series, Options{Title: "<b>x</b></script>"})
	assert.NoError(t, err)

	page, err := RenderBytes(PlainTitle(series), fig)
	assert.NoError(t, err)

	html := string(page)
	assert.True(t, strings.Contains(html, PlotlyURL))
	assert.True(t, strings.Contains(html, "<title>Saltlux (304100.KQ) 2025 Analysis</title>"))
	assert.True(t, strings.Contains(html, `Plotly.newPlot("chart"`))
	assert.True(t, strings.Contains(html, `"type":"candlestick"`))
	// Ensure title markup cannot terminate the script element.
	assert.Equal(t, strings.Count(html, "</script>"), 2)

	path := filepath.Join(t.TempDir(), "out", "chart.html")
	assert.NoError(t, SaveHTML(path, page))
	saved, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, len(saved), len(page))
}

func TestHandler(t *testing.T) {
	h := NewHandler([]byte("<html>chart</html>"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Body.String(), "<html>chart</html>")
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestDisplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var body string
	cfg := DisplayConfig{
		ListenAddr:  "127.0.0.1:0",
		OpenBrowser: true,
		Open: func(url string) error {
			// Fetch the page the way a browser would, then close the surface.
			defer cancel()
			resp, err := http.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			body = string(b)
			return err
		},
	}

	err := Display(ctx, []byte("<html>chart</html>"), cfg)
	assert.NoError(t, err)
	assert.Equal(t, body, "<html>chart</html>")

	// Ensure an unusable address is reported.
	err = Display(context.Background(), nil, DisplayConfig{ListenAddr: "127.0.0.1:-1"})
	assert.Error(t, err)
}

func TestSaveSnapshot(t *testing.T) {
	assert.Error(t, SaveSnapshot(filepath.Join(t.TempDir(), "x.png"), model.PriceSeries{}))

	pairs := make([][2]float64, 30)
	for i := range pairs {
		pairs[i] = [2]float64{100 + float64(i%4), 101 + float64(i%5)}
	}
	path := filepath.Join(t.TempDir(), "snap.png")
	assert.NoError(t, SaveSnapshot(path, derivedSeries(t, pairs...)))

	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.GreaterThan(t, info.Size(), int64(0))
}
