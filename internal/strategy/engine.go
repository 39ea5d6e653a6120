package strategy

import (
	"sort"

	"PatternRadar/internal/model"
)

type detector func(*model.Series, int, model.StatsWindow) model.PatternResult

// Detectors run in a fixed order so signal output is reproducible.
var detectors = []detector{
	detectVCP,
	detectCupWithHandle,
	detectFlatBase,
	detectNearBreakout,
	detectMomentum,
}

// Evaluate runs every pattern detector against the series at atIndex and
// aggregates the active scores. Detectors that skipped or did not activate
// contribute zero.
func Evaluate(s *model.Series, atIndex int, stats model.StatsWindow) *model.TickerSignal {
	sig := &model.TickerSignal{
		Ticker: s.Ticker,
		Perf3m: stats.Perf3m,
	}
	for _, d := range detectors {
		r := d(s, atIndex, stats)
		sig.Results = append(sig.Results, r)
		if r.Active {
			sig.TotalScore += r.Score
		}
	}
	return sig
}

// Rank orders signals into a watchlist: aggregate score descending, then
// 3-month return descending, then ticker ascending. The full ordering is
// deterministic so repeated scans over the same data produce identical
// output.
func Rank(signals map[string]*model.TickerSignal) []model.TickerSignal {
	out := make([]model.TickerSignal, 0, len(signals))
	for _, s := range signals {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		if out[i].Perf3m != out[j].Perf3m {
			return out[i].Perf3m > out[j].Perf3m
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}
