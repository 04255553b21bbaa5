package dashboard

import (
	"context"
	"fmt"
	"io"
	"os"

	"StockLens/internal/calculator"
	"StockLens/internal/chart"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/normalizer"
	"StockLens/internal/recorder"
	"StockLens/internal/report"

	"github.com/rs/zerolog"
)

// DisplayFunc shows a rendered chart page until ctx is done.
type DisplayFunc func(ctx context.Context, page []byte, cfg chart.DisplayConfig) error

// Deps are the collaborators of a run.
type Deps struct {
	// Fetcher is the market data source.
	Fetcher collector.Fetcher
	// Recorder stores run history. Defaults to a no-op recorder.
	Recorder recorder.Recorder
	// Out receives the console report. Defaults to stdout.
	Out io.Writer
	// Display shows the chart. Defaults to chart.Display.
	Display DisplayFunc
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// NewFetcher picks the data source: a saved CSV when configured, Yahoo otherwise.
func NewFetcher(cfg *config.Config, logger *zerolog.Logger) collector.Fetcher {
	if cfg.DataSource.CSVPath != "" {
		return collector.NewCSVFetcher(cfg.DataSource.CSVPath)
	}
	return collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy, logger)
}

// OpenRecorder opens the SQLite recorder when a path is configured, falling
// back to a no-op recorder when unset or when opening fails.
func OpenRecorder(cfg *config.Config, logger *zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}

// Run executes one analysis: fetch and persist, normalize, derive indicators,
// record, then render and display the chart. A fetch failure is reported on
// Out and returned; nothing after the fetch runs in that case.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Display == nil {
		deps.Display = chart.Display
	}
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}
	logger := deps.Logger

	start, err := cfg.StartDate()
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	end, err := cfg.EndDate()
	if err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}
	name, symbol := cfg.Stock.Name, cfg.Stock.Symbol

	fmt.Fprint(deps.Out, report.FormatBanner(name, symbol, start, end))

	col := collector.NewCollector(&collector.CollectorConfig{
		Fetcher:   deps.Fetcher,
		Symbol:    symbol,
		Name:      name,
		Start:     start,
		End:       end,
		OutputDir: cfg.Output.Dir,
		Logger:    logger,
	})
	res, err := col.Collect(ctx)
	if err != nil {
		fmt.Fprint(deps.Out, report.FormatFailure(err))
		return err
	}

	fmt.Fprint(deps.Out, report.FormatSuccess(res))
	fmt.Fprint(deps.Out, report.FormatPreview(res.Table))

	flat := normalizer.Normalize(res.Table)
	series, err := normalizer.ToSeries(flat, symbol, name)
	if err != nil {
		return fmt.Errorf("build series: %w", err)
	}
	fmt.Fprint(deps.Out, report.FormatDescribe(calculator.Describe(series.Closes())))

	derived, err := calculator.Derive(series)
	if err != nil {
		return fmt.Errorf("derive indicators: %w", err)
	}

	snap := &recorder.RunSnapshot{
		Symbol:  symbol,
		Name:    name,
		Start:   start,
		End:     end,
		CSVPath: res.Path,
		Series:  derived,
	}
	if err := deps.Recorder.RecordRun(snap); err != nil {
		logger.Error().Err(err).Msg("record run")
	}

	fig, err := chart.Build(derived, chart.Options{Currency: cfg.Stock.Currency, Height: cfg.Chart.Height})
	if err != nil {
		return fmt.Errorf("build chart: %w", err)
	}
	page, err := chart.RenderBytes(chart.PlainTitle(derived), fig)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	if path := cfg.Chart.HTMLPath; path != "" {
		if err := chart.SaveHTML(path, page); err != nil {
			return fmt.Errorf("save chart html: %w", err)
		}
		logger.Info().Str("path", path).Msg("chart page saved")
	}
	if path := cfg.Chart.SnapshotPath; path != "" {
		if err := chart.SaveSnapshot(path, derived); err != nil {
			return fmt.Errorf("save chart snapshot: %w", err)
		}
		logger.Info().Str("path", path).Msg("chart snapshot saved")
	}

	return deps.Display(ctx, page, chart.DisplayConfig{
		ListenAddr:  cfg.Chart.ListenAddr,
		OpenBrowser: cfg.Chart.OpenBrowser,
		Logger:      logger,
	})
}
