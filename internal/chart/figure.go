package chart

import (
	"fmt"
	"math"

	"StockLens/internal/calculator"
	"StockLens/internal/model"

	"github.com/guregu/null/v6"
)

// Panel colours.
const (
	ColorUp       = "#50C878"
	ColorDown     = "#E74C3C"
	ColorMA5      = "orange"
	ColorMA20     = "blue"
	ColorZeroLine = "gray"
	returnFill    = "rgba(80, 200, 120, 0.1)"
)

// Panel layout, top to bottom: indicator card, price, volume, return.
var (
	rowHeights      = []float64{0.15, 0.45, 0.15, 0.25}
	verticalSpacing = 0.05
)

// Options controls figure text and size.
type Options struct {
	// Title is the figure title. Defaults to "<b>{name} ({symbol}) {year} Analysis</b>".
	Title string
	// Currency labels the price axis and indicator card.
	Currency string
	// Height is the figure height in pixels.
	Height int
}

// Figure is a Plotly figure: traces plus layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is a Plotly trace. Only the fields relevant to its Type are set.
type Trace struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Mode      string `json:"mode,omitempty"`
	XAxis     string `json:"xaxis,omitempty"`
	YAxis     string `json:"yaxis,omitempty"`
	HoverInfo string `json:"hoverinfo,omitempty"`

	X          []string     `json:"x,omitempty"`
	Y          any          `json:"y,omitempty"`
	Open       []null.Float `json:"open,omitempty"`
	High       []null.Float `json:"high,omitempty"`
	Low        []null.Float `json:"low,omitempty"`
	Close      []null.Float `json:"close,omitempty"`
	Value      *float64     `json:"value,omitempty"`
	Delta      *Delta       `json:"delta,omitempty"`
	Title      *Title       `json:"title,omitempty"`
	Domain     *Domain      `json:"domain,omitempty"`
	Line       *Line        `json:"line,omitempty"`
	Increasing *Direction   `json:"increasing,omitempty"`
	Decreasing *Direction   `json:"decreasing,omitempty"`
	Marker     *Marker      `json:"marker,omitempty"`
	Fill       string       `json:"fill,omitempty"`
	FillColor  string       `json:"fillcolor,omitempty"`
}

// Delta configures the indicator change readout.
type Delta struct {
	Reference   float64 `json:"reference"`
	Relative    bool    `json:"relative"`
	ValueFormat string  `json:"valueformat,omitempty"`
}

// Title is a text title with optional placement and font.
type Title struct {
	Text string  `json:"text"`
	X    float64 `json:"x,omitempty"`
	Font *Font   `json:"font,omitempty"`
}

// Font sets text size.
type Font struct {
	Size int `json:"size"`
}

// Domain positions a non-cartesian trace.
type Domain struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Line styles a line or the outline of a glyph.
type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
	Dash  string  `json:"dash,omitempty"`
}

// Direction styles increasing or decreasing candles.
type Direction struct {
	Line Line `json:"line"`
}

// Marker sets per-point colours.
type Marker struct {
	Color []string `json:"color"`
}

// Layout is the figure layout with one x/y axis pair per cartesian panel.
type Layout struct {
	Title        Title  `json:"title"`
	Height       int    `json:"height"`
	ShowLegend   bool   `json:"showlegend"`
	Margin       Margin `json:"margin"`
	PaperBGColor string `json:"paper_bgcolor"`
	PlotBGColor  string `json:"plot_bgcolor"`
	XAxis2       Axis   `json:"xaxis2"`
	YAxis2       Axis   `json:"yaxis2"`
	XAxis3       Axis   `json:"xaxis3"`
	YAxis3       Axis   `json:"yaxis3"`
	XAxis4       Axis   `json:"xaxis4"`
	YAxis4       Axis   `json:"yaxis4"`
}

// Margin is the plot margin in pixels.
type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// Axis is a cartesian axis. Domain is horizontal for x axes and vertical for
// y axes.
type Axis struct {
	Type           string       `json:"type,omitempty"`
	Domain         []float64    `json:"domain"`
	Anchor         string       `json:"anchor"`
	Matches        string       `json:"matches,omitempty"`
	Title          *Title       `json:"title,omitempty"`
	RangeSlider    *RangeSlider `json:"rangeslider,omitempty"`
	ShowTickLabels bool         `json:"showticklabels"`
	ShowLine       bool         `json:"showline"`
	ShowGrid       bool         `json:"showgrid"`
	Ticks          string       `json:"ticks,omitempty"`
}

// RangeSlider is the zoom/pan slider under an x axis.
type RangeSlider struct {
	Visible   bool    `json:"visible"`
	Thickness float64 `json:"thickness"`
}

// rowDomains splits [0, 1] into vertical domains, first row on top.
func rowDomains(heights []float64, spacing float64) [][]float64 {
	total := 0.0
	for _, h := range heights {
		total += h
	}
	avail := 1 - spacing*float64(len(heights)-1)

	domains := make([][]float64, len(heights))
	top := 1.0
	for i, h := range heights {
		bottom := top - avail*h/total
		if i == len(heights)-1 {
			bottom = 0
		}
		domains[i] = []float64{bottom, top}
		top = bottom - spacing
	}
	return domains
}

// VolumeColors returns the bar colour of every row: up when the close is at
// or above the open.
func VolumeColors(series model.PriceSeries) []string {
	colors := make([]string, series.Len())
	for i, row := range series.Rows {
		colors[i] = ColorDown
		if row.Close >= row.Open {
			colors[i] = ColorUp
		}
	}
	return colors
}

// ReturnColor returns the return curve colour, decided by the sign of the
// final cumulative return. The series must not be empty.
func ReturnColor(series model.PriceSeries) string {
	if series.Last().CumulativeReturn >= 0 {
		return ColorUp
	}
	return ColorDown
}

// DefaultTitle returns the figure title for series.
func DefaultTitle(series model.PriceSeries) string {
	return fmt.Sprintf("<b>%s</b>", PlainTitle(series))
}

// PlainTitle returns the title text without markup.
func PlainTitle(series model.PriceSeries) string {
	year := 0
	if !series.Empty() {
		year = series.Rows[0].Time.Year()
	}
	return fmt.Sprintf("%s (%s) %d Analysis", series.Name, series.Symbol, year)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite maps missing and infinite values to null so they plot as gaps.
func finite(v float64) null.Float {
	return null.NewFloat(v, isFinite(v))
}

func finiteNull(v null.Float) null.Float {
	if !v.Valid {
		return v
	}
	return finite(v.Float64)
}

func axis(domain []float64, anchor string) Axis {
	return Axis{Domain: domain, Anchor: anchor, ShowLine: true, Ticks: "outside"}
}

// Build assembles the four-panel figure for a derived series.
func Build(series model.PriceSeries, opts Options) (*Figure, error) {
	change, err := calculator.LatestChange(series)
	if err != nil {
		return nil, err
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle(series)
	}
	if opts.Height == 0 {
		opts.Height = 1200
	}
	priceLabel := "Price"
	if opts.Currency != "" {
		priceLabel = fmt.Sprintf("Price (%s)", opts.Currency)
	}

	n := series.Len()
	dates := make([]string, n)
	opens := make([]null.Float, n)
	highs := make([]null.Float, n)
	lows := make([]null.Float, n)
	closes := make([]null.Float, n)
	volumes := make([]int64, n)
	ma5 := make([]null.Float, n)
	ma20 := make([]null.Float, n)
	returns := make([]null.Float, n)
	for i, row := range series.Rows {
		dates[i] = row.Time.Format(model.DateLayout)
		opens[i], highs[i], lows[i], closes[i] = finite(row.Open), finite(row.High), finite(row.Low), finite(row.Close)
		volumes[i] = row.Volume
		ma5[i], ma20[i] = finiteNull(row.MA5), finiteNull(row.MA20)
		returns[i] = finite(row.CumulativeReturn)
	}

	domains := rowDomains(rowHeights, verticalSpacing)

	card := Trace{
		Type:   "indicator",
		Mode:   "number",
		Title:  &Title{Text: "Current " + priceLabel},
		Domain: &Domain{X: []float64{0, 1}, Y: domains[0]},
	}
	if current := change.Current; isFinite(current) {
		card.Value = &current
	}
	if change.HasPrevious && card.Value != nil && isFinite(change.Previous) {
		card.Mode = "number+delta"
		card.Delta = &Delta{Reference: change.Previous, Relative: true, ValueFormat: ".2%"}
	}

	traces := []Trace{
		card,
		{
			Type: "candlestick", Name: "OHLC", XAxis: "x2", YAxis: "y2",
			X: dates, Open: opens, High: highs, Low: lows, Close: closes,
			Increasing: &Direction{Line: Line{Color: ColorUp}},
			Decreasing: &Direction{Line: Line{Color: ColorDown}},
		},
		{
			Type: "scatter", Name: "MA 5", Mode: "lines", XAxis: "x2", YAxis: "y2",
			X: dates, Y: ma5, Line: &Line{Color: ColorMA5, Width: 1},
		},
		{
			Type: "scatter", Name: "MA 20", Mode: "lines", XAxis: "x2", YAxis: "y2",
			X: dates, Y: ma20, Line: &Line{Color: ColorMA20, Width: 1},
		},
		{
			Type: "bar", Name: "Volume", XAxis: "x3", YAxis: "y3",
			X: dates, Y: volumes, Marker: &Marker{Color: VolumeColors(series)},
		},
		{
			Type: "scatter", Name: "Return (%)", Mode: "lines", XAxis: "x4", YAxis: "y4",
			X: dates, Y: returns, Line: &Line{Color: ReturnColor(series), Width: 2},
			Fill: "tozeroy", FillColor: returnFill,
		},
		{
			Type: "scatter", Name: "Zero Line", Mode: "lines", XAxis: "x4", YAxis: "y4",
			X: []string{dates[0], dates[n-1]}, Y: []float64{0, 0}, HoverInfo: "skip",
			Line: &Line{Color: ColorZeroLine, Dash: "dash", Width: 1},
		},
	}

	full := []float64{0, 1}
	x2 := axis(full, "y2")
	x2.Type = "date"
	x2.RangeSlider = &RangeSlider{Visible: true, Thickness: 0.05}
	x3 := axis(full, "y3")
	x3.Type = "date"
	x3.Matches = "x2"
	x4 := axis(full, "y4")
	x4.Type = "date"
	x4.Matches = "x2"
	x4.ShowTickLabels = true
	x4.Title = &Title{Text: "Date"}

	y2 := axis(domains[1], "x2")
	y2.ShowTickLabels = true
	y2.Title = &Title{Text: priceLabel}
	y3 := axis(domains[2], "x3")
	y3.ShowTickLabels = true
	y3.Title = &Title{Text: "Volume"}
	y4 := axis(domains[3], "x4")
	y4.ShowTickLabels = true
	y4.Title = &Title{Text: "Return (%)"}

	layout := Layout{
		Title:        Title{Text: opts.Title, X: 0.5, Font: &Font{Size: 24}},
		Height:       opts.Height,
		Margin:       Margin{L: 50, R: 50, T: 100, B: 50},
		PaperBGColor: "white",
		PlotBGColor:  "white",
		XAxis2:       x2,
		YAxis2:       y2,
		XAxis3:       x3,
		YAxis3:       y3,
		XAxis4:       x4,
		YAxis4:       y4,
	}

	return &Figure{Data: traces, Layout: layout}, nil
}
