package scan

import (
	"fmt"
	"strings"
	"time"

	"PatternRadar/internal/history"
	"PatternRadar/internal/model"
)

// FormatWatchlist renders a ranked scan into a plain-text report for CLI
// and log output.
func FormatWatchlist(asOf time.Time, watchlist []model.TickerSignal, failures []history.LoadFailure) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("PatternRadar scan | %s\n\n", asOf.Format("2006-01-02")))

	passed := 0
	for _, sig := range watchlist {
		if sig.Passed() {
			passed++
		}
	}
	b.WriteString(fmt.Sprintf("%d tickers evaluated, %d with active setups\n\n", len(watchlist), passed))

	for i, sig := range watchlist {
		if !sig.Passed() {
			continue
		}
		b.WriteString(fmt.Sprintf("%2d. %-6s score %.2f (3m %+.1f%%)\n", i+1, sig.Ticker, sig.TotalScore, sig.Perf3m*100))
		for _, r := range sig.Results {
			if r.Active {
				b.WriteString(fmt.Sprintf("      %-16s %+.2f  %s\n", r.Name, r.Score, r.Reason))
			}
		}
	}

	if len(failures) > 0 {
		b.WriteString("\nskipped:\n")
		for _, f := range failures {
			b.WriteString(fmt.Sprintf("  %s: %s\n", f.Ticker, f.Reason))
		}
	}

	return b.String()
}
