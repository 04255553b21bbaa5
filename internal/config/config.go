package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"StockLens/internal/model"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Stock struct {
		Name     string `yaml:"name"`
		Symbol   string `yaml:"symbol"`
		Start    string `yaml:"start"`
		End      string `yaml:"end"`
		Currency string `yaml:"currency"`
	} `yaml:"stock"`
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		CSVPath string `yaml:"csv_path"`
	} `yaml:"data_source"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Chart struct {
		ListenAddr   string `yaml:"listen_addr"`
		OpenBrowser  bool   `yaml:"open_browser"`
		Height       int    `yaml:"height"`
		HTMLPath     string `yaml:"html_path"`
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"chart"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Stock.Name = "솔트룩스"
	cfg.Stock.Symbol = "304100.KQ"
	cfg.Stock.Start = "2025-01-01"
	cfg.Stock.End = "2025-12-31"
	cfg.Stock.Currency = "KRW"
	cfg.Output.Dir = "."
	cfg.Chart.ListenAddr = "127.0.0.1:0"
	cfg.Chart.OpenBrowser = true
	cfg.Chart.Height = 1200
	cfg.Log.Level = "info"
	return cfg
}

// Path returns the config file path, honouring CONFIG_PATH.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// LoadDotEnv loads path (".env" when empty) into the environment if it exists.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("STOCK_NAME"); v != "" {
		cfg.Stock.Name = v
	}
	if v := os.Getenv("STOCK_SYMBOL"); v != "" {
		cfg.Stock.Symbol = v
	}
	if v := os.Getenv("START_DATE"); v != "" {
		cfg.Stock.Start = v
	}
	if v := os.Getenv("END_DATE"); v != "" {
		cfg.Stock.End = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_CSV"); v != "" {
		cfg.DataSource.CSVPath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CHART_LISTEN_ADDR"); v != "" {
		cfg.Chart.ListenAddr = v
	}
	if v := os.Getenv("CHART_OPEN_BROWSER"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse CHART_OPEN_BROWSER: %w", err)
		}
		cfg.Chart.OpenBrowser = open
	}

	return cfg, nil
}

// ApplyFlags parses command line arguments over the loaded values.
func (c *Config) ApplyFlags(args []string) error {
	fs := flag.NewFlagSet("stocklens", flag.ContinueOnError)
	fs.StringVar(&c.Stock.Symbol, "symbol", c.Stock.Symbol, "provider symbol code, e.g. 035420.KS")
	fs.StringVar(&c.Stock.Name, "name", c.Stock.Name, "display name used in titles and file names")
	fs.StringVar(&c.Stock.Start, "start", c.Stock.Start, "first date, YYYY-MM-DD")
	fs.StringVar(&c.Stock.End, "end", c.Stock.End, "end date (exclusive), YYYY-MM-DD")
	fs.StringVar(&c.DataSource.CSVPath, "csv", c.DataSource.CSVPath, "read bars from a saved CSV instead of the provider")
	noBrowser := fs.Bool("no-browser", false, "serve the chart without opening a browser")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *noBrowser {
		c.Chart.OpenBrowser = false
	}
	return nil
}

// StartDate returns the parsed start date.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse(model.DateLayout, c.Stock.Start)
}

// EndDate returns the parsed exclusive end date.
func (c *Config) EndDate() (time.Time, error) {
	return time.Parse(model.DateLayout, c.Stock.End)
}

// LogLevel returns the configured zerolog level.
func (c *Config) LogLevel() (zerolog.Level, error) {
	return zerolog.ParseLevel(c.Log.Level)
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var errs error
	if c.Stock.Symbol == "" {
		errs = errors.Join(errs, errors.New("stock.symbol is required"))
	}
	if c.Stock.Name == "" {
		errs = errors.Join(errs, errors.New("stock.name is required"))
	}

	start, startErr := c.StartDate()
	if startErr != nil {
		errs = errors.Join(errs, fmt.Errorf("stock.start must be YYYY-MM-DD: %w", startErr))
	}
	end, endErr := c.EndDate()
	if endErr != nil {
		errs = errors.Join(errs, fmt.Errorf("stock.end must be YYYY-MM-DD: %w", endErr))
	}
	if startErr == nil && endErr == nil && !start.Before(end) {
		errs = errors.Join(errs, errors.New("stock.start must be before stock.end"))
	}

	if c.Chart.Height <= 0 {
		errs = errors.Join(errs, errors.New("chart.height must be positive"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("log.level: %w", err))
	}
	return errs
}
