package store

import (
	"context"
	"errors"
	"time"

	"PatternRadar/internal/model"
)

// ErrStorage marks cache-storage faults. Callers treat any error wrapping
// it as fatal to the enclosing call: the rest of the pipeline depends on
// cache integrity, so storage faults are never converted to empty results.
var ErrStorage = errors.New("series store unavailable")

// SeriesStore is the durable (ticker, date) -> Bar cache.
type SeriesStore interface {
	// Put upserts every bar for the ticker; writes for the same key
	// resolve last-writer-wins.
	Put(ctx context.Context, ticker string, bars []model.Bar) error
	// Get returns the cached bars with start <= date <= end, ascending by
	// date. An empty slice means nothing is cached in range.
	Get(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error)
	// Purge deletes all bars for one ticker.
	Purge(ctx context.Context, ticker string) error
	// PurgeAll deletes every cached bar.
	PurgeAll(ctx context.Context) error
	Close() error
}

// ScanRecorder persists per-run watchlist snapshots for later review.
type ScanRecorder interface {
	RecordScan(ctx context.Context, asOf time.Time, signals []model.TickerSignal) error
}
