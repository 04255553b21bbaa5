package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockLens/internal/model"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zerolog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                TEXT PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			symbol            TEXT NOT NULL,
			name              TEXT,
			start_date        TEXT,
			end_date          TEXT,
			rows              INTEGER,
			csv_path          TEXT,
			last_close        REAL,
			prev_close        REAL,
			cumulative_return REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS run_bars (
			run_id            TEXT NOT NULL REFERENCES runs(id),
			date              TEXT NOT NULL,
			open              REAL,
			high              REAL,
			low               REAL,
			close             REAL,
			volume            INTEGER,
			ma5               REAL,
			ma20              REAL,
			cumulative_return REAL,
			PRIMARY KEY (run_id, date)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and its bars in one transaction. A missing ID or
// timestamp is filled in.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	if snap.Series.Empty() {
		return errors.New("record run: empty series")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	rows := snap.Series.Rows
	last := rows[len(rows)-1]
	var prev null.Float
	if len(rows) > 1 {
		prev = null.FloatFrom(rows[len(rows)-2].Close)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, timestamp, symbol, name, start_date, end_date, rows, csv_path,
		 last_close, prev_close, cumulative_return)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		snap.ID, snap.Timestamp.Unix(), snap.Symbol, snap.Name,
		snap.Start.Format(model.DateLayout), snap.End.Format(model.DateLayout),
		len(rows), snap.CSVPath, last.Close, prev, last.CumulativeReturn,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO run_bars
		(run_id, date, open, high, low, close, volume, ma5, ma20, cumulative_return)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare bars: %w", err)
	}
	defer stmt.Close()

	for _, o := range rows {
		if _, err := stmt.Exec(snap.ID, o.Time.Format(model.DateLayout),
			o.Open, o.High, o.Low, o.Close, o.Volume, o.MA5, o.MA20, o.CumulativeReturn); err != nil {
			return fmt.Errorf("insert bar %s: %w", o.Time.Format(model.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug().Str("run", snap.ID).Int("bars", len(rows)).Msg("run recorded")
	return nil
}

// RunSummary is a stored run row.
type RunSummary struct {
	ID               string
	Timestamp        time.Time
	Symbol           string
	Rows             int
	LastClose        float64
	PrevClose        null.Float
	CumulativeReturn float64
}

// LatestRuns returns up to limit runs of symbol, newest first.
func (r *SQLiteRecorder) LatestRuns(symbol string, limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, symbol, rows, last_close, prev_close, cumulative_return
		FROM runs WHERE symbol = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ts int64
		if err := rows.Scan(&s.ID, &ts, &s.Symbol, &s.Rows, &s.LastClose, &s.PrevClose, &s.CumulativeReturn); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// BarCount returns the number of stored bars of a run.
func (r *SQLiteRecorder) BarCount(runID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM run_bars WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
