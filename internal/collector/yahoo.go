package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"StockLens/internal/model"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultYahooBaseURL is the Yahoo Finance public API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// yahooNotFound is the provider error code for unknown or delisted symbols.
const yahooNotFound = "Not Found"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	Logger  *zerolog.Logger
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, proxyURL string, logger *zerolog.Logger) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: baseURL,
		Logger:  logger,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) chartURL(symbol string, start, end time.Time) string {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(symbol), params.Encode())
}

// FetchDaily fetches daily bars for [start, end) from the chart endpoint.
func (f *YahooFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.Table, error) {
	u := f.chartURL(symbol, start, end)
	f.Logger.Debug().Str("url", u).Msg("requesting yahoo chart")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "yahoo request", Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "yahoo fetch", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "yahoo read body", Err: err}
	}

	// Unknown symbols come back as a 404 carrying a chart error object, so the
	// body is inspected before the status code.
	if code := gjson.GetBytes(body, "chart.error.code"); code.Exists() {
		if code.String() == yahooNotFound {
			return nil, &EmptyResultError{Symbol: symbol, Start: start, End: end}
		}
		desc := gjson.GetBytes(body, "chart.error.description").String()
		return nil, &FetchError{Symbol: symbol, Op: "yahoo api",
			Err: fmt.Errorf("%s: %s", code.String(), desc)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Symbol: symbol, Op: "yahoo fetch",
			Err: fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))}
	}

	table, err := parseChart(body, symbol, start, end)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "yahoo decode", Err: err}
	}
	if table.Empty() {
		return nil, &EmptyResultError{Symbol: symbol, Start: start, End: end}
	}

	f.Logger.Debug().Int("rows", table.Len()).Msg("yahoo chart parsed")
	return table, nil
}

// exchangeLocation resolves the exchange time zone of a chart result.
func exchangeLocation(meta gjson.Result) *time.Location {
	if name := meta.Get("exchangeTimezoneName").String(); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	offset := meta.Get("gmtoffset").Int()
	return time.FixedZone(meta.Get("timezone").String(), int(offset))
}

// calendarDate truncates t to its calendar date in loc, expressed as UTC midnight.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type yahooBar struct {
	date   time.Time
	values []float64
}

// cellValue returns the number held by v, NaN for a null or missing cell.
func cellValue(v gjson.Result) float64 {
	if v.Type != gjson.Number {
		return math.NaN()
	}
	return v.Float()
}

// adjustBar rescales open, high, low and close by adjClose/close so prices
// account for splits and dividends. Bars without both values are left as is.
func adjustBar(values []float64, adjClose float64) {
	closeIdx := -1
	for j, field := range model.OHLCVFields {
		if field == model.FieldClose {
			closeIdx = j
		}
	}
	c := values[closeIdx]
	if math.IsNaN(adjClose) || math.IsNaN(c) || c == 0 {
		return
	}
	ratio := adjClose / c
	for j, field := range model.OHLCVFields {
		switch field {
		case model.FieldOpen, model.FieldHigh, model.FieldLow:
			values[j] *= ratio
		}
	}
	values[closeIdx] = adjClose
}

// parseChart converts a chart response body into a hierarchical table keyed by
// symbol. Prices are split and dividend adjusted when the response carries
// adjclose. Null bars are skipped, null cells kept as NaN, dates outside
// [start, end) dropped and duplicate dates resolved in favour of the later bar.
func parseChart(body []byte, symbol string, start, end time.Time) (*model.Table, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid json")
	}

	table := model.NewTable(model.NewHierarchicalSchema(symbol, model.OHLCVFields...))

	results := gjson.GetBytes(body, "chart.result").Array()
	if len(results) == 0 {
		return table, nil
	}
	result := results[0]

	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return table, nil
	}

	quote := result.Get("indicators.quote.0")
	if !quote.Exists() {
		return nil, errors.New("missing quote indicators")
	}
	series := map[string][]gjson.Result{
		model.FieldOpen:   quote.Get("open").Array(),
		model.FieldHigh:   quote.Get("high").Array(),
		model.FieldLow:    quote.Get("low").Array(),
		model.FieldClose:  quote.Get("close").Array(),
		model.FieldVolume: quote.Get("volume").Array(),
	}
	for field, values := range series {
		if len(values) != len(timestamps) {
			return nil, fmt.Errorf("%s has %d values for %d timestamps", field, len(values), len(timestamps))
		}
	}

	var adjClose []gjson.Result
	if adj := result.Get("indicators.adjclose.0.adjclose"); adj.Exists() {
		adjClose = adj.Array()
		if len(adjClose) != len(timestamps) {
			return nil, fmt.Errorf("adjclose has %d values for %d timestamps", len(adjClose), len(timestamps))
		}
	}

	loc := exchangeLocation(result.Get("meta"))
	first := calendarDate(start, time.UTC)
	last := calendarDate(end, time.UTC)

	byDate := make(map[time.Time]yahooBar, len(timestamps))
	for i, ts := range timestamps {
		allNull := true
		for _, field := range []string{model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose} {
			if series[field][i].Type != gjson.Null {
				allNull = false
			}
		}
		if allNull {
			continue // holidays and halted sessions
		}

		date := calendarDate(time.Unix(ts.Int(), 0), loc)
		if date.Before(first) || !date.Before(last) {
			continue
		}

		values := make([]float64, len(model.OHLCVFields))
		for j, field := range model.OHLCVFields {
			values[j] = cellValue(series[field][i])
		}
		if adjClose != nil {
			adjustBar(values, cellValue(adjClose[i]))
		}
		byDate[date] = yahooBar{date: date, values: values}
	}

	bars := make([]yahooBar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].date.Before(bars[j].date) })

	for _, b := range bars {
		if err := table.Append(b.date, b.values...); err != nil {
			return nil, err
		}
	}
	return table, nil
}
