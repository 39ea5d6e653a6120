package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"PatternRadar/internal/model"

	_ "modernc.org/sqlite"
)

// Compile-time interface checks.
var _ SeriesStore = (*SQLiteStore)(nil)
var _ ScanRecorder = (*SQLiteStore)(nil)

const dateLayout = "2006-01-02"

// SQLiteStore persists daily bars and scan snapshots to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so scan reads don't block concurrent cache writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			ticker    TEXT NOT NULL,
			date      TEXT NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			adj_close REAL,
			PRIMARY KEY (ticker, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_ticker ON bars(ticker)`,

		`CREATE TABLE IF NOT EXISTS scan_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			as_of       TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			total_score REAL,
			perf_3m     REAL,
			patterns    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_snapshots(timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Put upserts every bar for the ticker. Re-saving identical bars is a
// no-op from the reader's point of view (replace-on-conflict).
func (s *SQLiteStore) Put(ctx context.Context, ticker string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bars
		(ticker, date, open, high, low, close, volume, adj_close)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume,
			adj_close=excluded.adj_close`)
	if err != nil {
		return fmt.Errorf("%w: prepare upsert: %v", ErrStorage, err)
	}
	defer stmt.Close()

	key := strings.ToUpper(ticker)
	for _, b := range bars {
		adj := b.AdjClose
		if adj == 0 {
			adj = b.Close
		}
		if _, err := stmt.ExecContext(ctx, key, b.Date.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume, adj); err != nil {
			return fmt.Errorf("%w: upsert %s %s: %v", ErrStorage, key, b.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// Get returns cached bars within [start, end], ascending by date.
func (s *SQLiteStore) Get(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume, adj_close
		FROM bars WHERE ticker = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		strings.ToUpper(ticker), start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: query bars: %v", ErrStorage, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var dateStr string
		var b model.Bar
		if err := rows.Scan(&dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.AdjClose); err != nil {
			return nil, fmt.Errorf("%w: scan bar: %v", ErrStorage, err)
		}
		d, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt date %q: %v", ErrStorage, dateStr, err)
		}
		b.Date = d
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate bars: %v", ErrStorage, err)
	}
	return bars, nil
}

// Purge deletes all bars for one ticker.
func (s *SQLiteStore) Purge(ctx context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bars WHERE ticker = ?`, strings.ToUpper(ticker)); err != nil {
		return fmt.Errorf("%w: purge %s: %v", ErrStorage, ticker, err)
	}
	return nil
}

// PurgeAll deletes every cached bar.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bars`); err != nil {
		return fmt.Errorf("%w: purge all: %v", ErrStorage, err)
	}
	return nil
}

// RecordScan persists one row per ticker for a completed scan.
func (s *SQLiteStore) RecordScan(ctx context.Context, asOf time.Time, signals []model.TickerSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	for _, sig := range signals {
		var active []string
		for _, r := range sig.Results {
			if r.Active {
				active = append(active, r.Name)
			}
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO scan_snapshots
			(timestamp, as_of, ticker, total_score, perf_3m, patterns)
			VALUES (?,?,?,?,?,?)`,
			now, asOf.Format(dateLayout), sig.Ticker, sig.TotalScore,
			sig.Perf3m, strings.Join(active, ",")); err != nil {
			return fmt.Errorf("%w: record scan %s: %v", ErrStorage, sig.Ticker, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
