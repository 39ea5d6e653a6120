package model

// PatternResult is the outcome of one pattern heuristic at one bar.
type PatternResult struct {
	Name    string
	Active  bool
	Skipped bool // series shorter than the pattern's minimum lookback
	Score   float64
	Reason  string
}

// TickerSignal aggregates all pattern results for one ticker.
type TickerSignal struct {
	Ticker     string
	Results    []PatternResult
	TotalScore float64 // sum of active pattern scores
	Perf3m     float64 // ranking tiebreaker
}

// Passed reports whether at least one pattern activated.
func (s *TickerSignal) Passed() bool {
	for _, r := range s.Results {
		if r.Active {
			return true
		}
	}
	return false
}
