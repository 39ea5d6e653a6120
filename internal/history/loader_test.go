package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternRadar/internal/model"
	"PatternRadar/internal/source"
	"PatternRadar/internal/store"
)

var (
	rangeStart = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
)

func newTestLoader(t *testing.T) (*Loader, *source.MockSource, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	src := source.NewMockSource()
	l := NewLoader(st, src)
	l.RetryDelay = time.Millisecond
	return l, src, st
}

func TestLoad_FallbackAndWriteBack(t *testing.T) {
	l, src, st := newTestLoader(t)
	ctx := context.Background()

	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)

	series, err := l.Load(ctx, "AAPL", rangeStart, rangeEnd, true)
	require.NoError(t, err)
	require.Equal(t, 5, series.Len())
	assert.Equal(t, "AAPL", series.Ticker)

	// Write-back: the cache now serves the same bars.
	cached, err := st.Get(ctx, "AAPL", rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, series.Bars, cached)
}

func TestLoad_CacheHitSkipsRemote(t *testing.T) {
	l, src, _ := newTestLoader(t)
	ctx := context.Background()

	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)

	_, err := l.Load(ctx, "AAPL", rangeStart, rangeEnd, true)
	require.NoError(t, err)
	require.Equal(t, 1, src.Fetched["AAPL"])

	// Second load is served from cache, even though the cached range may
	// be a strict subset of the requested trading days.
	series, err := l.Load(ctx, "AAPL", rangeStart, rangeEnd, true)
	require.NoError(t, err)
	assert.Equal(t, 5, series.Len())
	assert.Equal(t, 1, src.Fetched["AAPL"], "cache hit must not refetch")
}

func TestLoad_NoCacheBypassesCache(t *testing.T) {
	l, src, _ := newTestLoader(t)
	ctx := context.Background()

	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)

	_, err := l.Load(ctx, "AAPL", rangeStart, rangeEnd, true)
	require.NoError(t, err)
	_, err = l.Load(ctx, "AAPL", rangeStart, rangeEnd, false)
	require.NoError(t, err)

	assert.Equal(t, 2, src.Fetched["AAPL"])
}

func TestLoad_NotFound(t *testing.T) {
	l, _, _ := newTestLoader(t)

	_, err := l.Load(context.Background(), "FAKE1", rangeStart, rangeEnd, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_RetriesTransientFaults(t *testing.T) {
	l, src, _ := newTestLoader(t)
	ctx := context.Background()

	src.Err["AAPL"] = fmt.Errorf("%w: connection reset", source.ErrUnavailable)

	_, err := l.Load(ctx, "AAPL", rangeStart, rangeEnd, true)
	assert.ErrorIs(t, err, source.ErrUnavailable)
	assert.Equal(t, 3, src.Fetched["AAPL"], "transient faults retry up to MaxRetries")
}

func TestLoad_NotFoundDoesNotRetry(t *testing.T) {
	l, src, _ := newTestLoader(t)

	_, err := l.Load(context.Background(), "FAKE1", rangeStart, rangeEnd, true)
	require.Error(t, err)
	assert.Equal(t, 1, src.Fetched["FAKE1"])
}

func TestLoadMany_PartialFailure(t *testing.T) {
	l, src, _ := newTestLoader(t)
	ctx := context.Background()

	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)
	src.Err["FAKE1"] = fmt.Errorf("%w: bogus symbol", source.ErrUnavailable)

	results, failures, err := l.LoadMany(ctx, []string{"AAPL", "FAKE1"}, rangeStart, rangeEnd, true)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Contains(t, results, "AAPL")

	require.Len(t, failures, 1)
	assert.Equal(t, "FAKE1", failures[0].Ticker)
	assert.NotEmpty(t, failures[0].Reason)
}

func TestLoadMany_ConcurrentFetches(t *testing.T) {
	l, src, _ := newTestLoader(t)
	l.Concurrency = 8
	ctx := context.Background()

	var tickers []string
	for i := 0; i < 32; i++ {
		ticker := fmt.Sprintf("SYM%02d", i)
		tickers = append(tickers, ticker)
		src.Bars[ticker] = source.GenerateBars(100+float64(i), 5, rangeEnd)
	}

	results, failures, err := l.LoadMany(ctx, tickers, rangeStart, rangeEnd, true)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, results, 32)

	for _, ticker := range tickers {
		assert.Equal(t, 1, src.Fetched[ticker], "each ticker fetched exactly once")
	}
}

func TestLoadMany_UppercasesTickers(t *testing.T) {
	l, src, _ := newTestLoader(t)
	ctx := context.Background()

	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)

	results, failures, err := l.LoadMany(ctx, []string{"aapl"}, rangeStart, rangeEnd, true)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Contains(t, results, "AAPL")
}

// faultStore fails every read, simulating an unreachable cache.
type faultStore struct{}

func (faultStore) Put(context.Context, string, []model.Bar) error { return nil }
func (faultStore) Get(context.Context, string, time.Time, time.Time) ([]model.Bar, error) {
	return nil, fmt.Errorf("%w: disk gone", store.ErrStorage)
}
func (faultStore) Purge(context.Context, string) error { return nil }
func (faultStore) PurgeAll(context.Context) error      { return nil }
func (faultStore) Close() error                        { return nil }

func TestLoadMany_StorageFaultAbortsBatch(t *testing.T) {
	src := source.NewMockSource()
	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)

	l := NewLoader(faultStore{}, src)

	_, _, err := l.LoadMany(context.Background(), []string{"AAPL", "MSFT"}, rangeStart, rangeEnd, true)
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestLoadMany_CancelledContext(t *testing.T) {
	l, src, _ := newTestLoader(t)
	src.Bars["AAPL"] = source.GenerateBars(100, 5, rangeEnd)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, failures, err := l.LoadMany(ctx, []string{"AAPL"}, rangeStart, rangeEnd, true)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Len(t, failures, 1)
}

// barAt builds a well-formed bar closing at c.
func barAt(d time.Time, c float64) model.Bar {
	return model.Bar{Date: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1e6}
}

func TestNormalize_SortsAndDeduplicates(t *testing.T) {
	d1 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	bars := normalize([]model.Bar{
		barAt(d2, 102),
		barAt(d1, 100),
		barAt(d2, 103), // duplicate date, last occurrence wins
	})

	require.Len(t, bars, 2)
	assert.Equal(t, d1, bars[0].Date)
	assert.Equal(t, 103.0, bars[1].Close)
	assert.Equal(t, 103.0, bars[1].AdjClose, "adjClose defaults to close")
}

func TestNormalize_DropsMalformedBars(t *testing.T) {
	d1 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)

	bars := normalize([]model.Bar{
		barAt(d1, 100),
		{Date: d2, Open: 100, High: 99, Low: 101, Close: 100},  // low above high
		{Date: d3, Open: 100, High: 101, Low: 99, Close: 150},  // close above high
		barAt(d3, 102),
	})

	require.Len(t, bars, 2)
	assert.Equal(t, d1, bars[0].Date)
	assert.Equal(t, 102.0, bars[1].Close)
}

func TestNormalize_ErrorTaxonomy(t *testing.T) {
	// EmptySeries maps onto not-found, not onto a transport fault.
	assert.False(t, errors.Is(ErrNotFound, source.ErrUnavailable))
}
