// Package scan orchestrates a full watchlist scan: load history for a
// ticker universe, compute windowed stats, run the pattern detectors, and
// rank the results.
package scan

import (
	"context"
	"fmt"
	"log"
	"time"

	"PatternRadar/internal/calculator"
	"PatternRadar/internal/history"
	"PatternRadar/internal/model"
	"PatternRadar/internal/store"
	"PatternRadar/internal/strategy"
)

// DefaultLookbackDays covers the 252-bar rolling high plus the longest
// pattern lookback, with slack for weekends and holidays.
const DefaultLookbackDays = 420

// Scanner runs pattern scans over a ticker universe. The universe is a
// caller-supplied parameter on every call, never process-wide state.
type Scanner struct {
	Loader       *history.Loader
	Recorder     store.ScanRecorder // optional scan-snapshot persistence
	LookbackDays int
	UseCache     bool
}

// NewScanner creates a Scanner with the default lookback and caching on.
func NewScanner(loader *history.Loader) *Scanner {
	return &Scanner{
		Loader:       loader,
		LookbackDays: DefaultLookbackDays,
		UseCache:     true,
	}
}

// Scan evaluates every ticker as of the given date and returns the ranked
// watchlist plus per-ticker failures. Single-ticker faults never abort the
// batch; storage faults do.
func (sc *Scanner) Scan(ctx context.Context, tickers []string, asOf time.Time) ([]model.TickerSignal, []history.LoadFailure, error) {
	lookback := sc.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	start := model.Day(asOf).AddDate(0, 0, -lookback)

	seriesByTicker, failures, err := sc.Loader.LoadMany(ctx, tickers, start, asOf, sc.UseCache)
	if err != nil {
		return nil, nil, fmt.Errorf("load universe: %w", err)
	}

	signals := make(map[string]*model.TickerSignal, len(seriesByTicker))
	for ticker, series := range seriesByTicker {
		atIndex := series.Len() - 1
		stats, err := calculator.Compute(series, atIndex)
		if err != nil {
			failures = append(failures, history.LoadFailure{Ticker: ticker, Reason: err.Error()})
			continue
		}
		signals[ticker] = strategy.Evaluate(series, atIndex, stats)
	}

	ranked := strategy.Rank(signals)

	if sc.Recorder != nil {
		// Best effort, like the loader's cache write-back.
		if err := sc.Recorder.RecordScan(ctx, asOf, ranked); err != nil {
			log.Printf("[WARN] record scan snapshot: %v", err)
		}
	}

	return ranked, failures, nil
}
