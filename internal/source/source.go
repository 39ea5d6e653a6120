package source

import (
	"context"
	"errors"
	"time"

	"PatternRadar/internal/model"
)

// ErrNoData means the provider returned zero rows for the requested range.
// Treated as not-found: the ticker is omitted from batch results.
var ErrNoData = errors.New("no bar data in range")

// ErrUnavailable marks transport-level provider failures. Recoverable
// per-ticker: a batch omits the ticker instead of aborting.
var ErrUnavailable = errors.New("remote source unavailable")

// RemoteSource fetches daily bars for a ticker and date range from an
// upstream provider. Implementations must return bars sorted ascending by
// date with the provider's batch/multi-index response shapes already
// collapsed to the single-ticker view.
type RemoteSource interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error)
	Name() string
}
