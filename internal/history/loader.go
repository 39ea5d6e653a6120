package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"PatternRadar/internal/model"
	"PatternRadar/internal/source"
	"PatternRadar/internal/store"
)

// ErrNotFound means no bars exist for the ticker in the requested range,
// neither cached nor at the remote source.
var ErrNotFound = errors.New("ticker history not found")

// LoadFailure records why one ticker was omitted from a batch result.
type LoadFailure struct {
	Ticker string
	Reason string
}

// Loader merges the durable bar cache and the remote source into gap-free
// per-ticker series. It owns the cache-fill policy: cache-first reads, and
// best-effort write-back of remote results.
type Loader struct {
	Store       store.SeriesStore
	Source      source.RemoteSource
	Limiter     *RateLimiter
	MaxRetries  int           // remote fetch attempts per ticker, default 3
	RetryDelay  time.Duration // initial backoff, default 500ms
	Concurrency int           // bounded fan-out for LoadMany, default 4
}

// NewLoader creates a Loader with default retry and concurrency settings.
func NewLoader(st store.SeriesStore, src source.RemoteSource) *Loader {
	return &Loader{
		Store:       st,
		Source:      src,
		MaxRetries:  3,
		RetryDelay:  500 * time.Millisecond,
		Concurrency: 4,
	}
}

// Load returns the daily series for one ticker over [start, end].
//
// With useCache, a non-empty cached range is returned as-is; the loader
// deliberately does not verify the cached range covers every expected
// trading day (weekends and holidays naturally produce gaps, and the
// stricter check would force a refetch on every scan). Cache read faults
// are fatal. A remote result is written back best-effort: a failed write
// is logged and the fetched series is still returned.
func (l *Loader) Load(ctx context.Context, ticker string, start, end time.Time, useCache bool) (*model.Series, error) {
	ticker = strings.ToUpper(ticker)

	if useCache {
		cached, err := l.Store.Get(ctx, ticker, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("cache read %s: %w", ticker, err)
		}
		if len(cached) > 0 {
			return &model.Series{Ticker: ticker, Bars: cached}, nil
		}
	}

	bars, err := l.fetchWithRetry(ctx, ticker, start, end)
	if err != nil {
		if errors.Is(err, source.ErrNoData) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
		}
		return nil, err
	}

	bars = normalize(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}

	if err := l.Store.Put(ctx, ticker, bars); err != nil {
		log.Printf("[WARN] cache write-back failed for %s: %v", ticker, err)
	}

	return &model.Series{Ticker: ticker, Bars: bars}, nil
}

// LoadMany loads each ticker independently with a bounded worker pool.
// Tickers whose load fails recoverably (not found, source unavailable) are
// omitted from the result map and reported in the failure list; a storage
// fault aborts the whole batch. The returned failures are sorted by ticker
// so batch output is deterministic regardless of worker completion order.
func (l *Loader) LoadMany(ctx context.Context, tickers []string, start, end time.Time, useCache bool) (map[string]*model.Series, []LoadFailure, error) {
	concurrency := l.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		sem        = make(chan struct{}, concurrency)
		results    = make(map[string]*model.Series, len(tickers))
		failures   []LoadFailure
		storageErr error
	)

	for _, t := range tickers {
		ticker := strings.ToUpper(t)
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				failures = append(failures, LoadFailure{Ticker: ticker, Reason: ctx.Err().Error()})
				mu.Unlock()
				return
			}
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failures = append(failures, LoadFailure{Ticker: ticker, Reason: err.Error()})
				mu.Unlock()
				return
			}

			series, err := l.Load(ctx, ticker, start, end, useCache)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[ticker] = series
			case errors.Is(err, store.ErrStorage):
				// Cache integrity is a precondition for the whole scan.
				if storageErr == nil {
					storageErr = err
				}
				cancel()
			default:
				failures = append(failures, LoadFailure{Ticker: ticker, Reason: err.Error()})
			}
		}()
	}
	wg.Wait()

	if storageErr != nil {
		return nil, nil, storageErr
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Ticker < failures[j].Ticker })
	return results, failures, nil
}

// fetchWithRetry retries transport-level failures with exponential backoff.
// Not-found responses are returned immediately: retrying a delisted symbol
// only burns rate-limit tokens.
func (l *Loader) fetchWithRetry(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	attempts := l.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	delay := l.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if werr := l.Limiter.Wait(ctx); werr != nil {
			return nil, werr
		}

		var bars []model.Bar
		bars, err = l.Source.Fetch(ctx, ticker, start, end)
		if err == nil {
			return bars, nil
		}
		if errors.Is(err, source.ErrNoData) || ctx.Err() != nil {
			return nil, err
		}

		if attempt < attempts-1 {
			log.Printf("[WARN] fetch %s attempt %d failed: %v", ticker, attempt+1, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return nil, err
}

// normalize sorts bars ascending by date, drops malformed bars, and drops
// duplicate dates, keeping the last occurrence (last-writer-wins, matching
// the cache's upsert semantics). A bar is malformed when its closes fall
// outside the low..high range; caching such a row would poison every later
// windowed computation on the ticker.
func normalize(bars []model.Bar) []model.Bar {
	if len(bars) == 0 {
		return bars
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if b.Low > b.High || b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
			continue
		}
		b.Date = model.Day(b.Date)
		if b.AdjClose == 0 {
			b.AdjClose = b.Close
		}
		if len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
