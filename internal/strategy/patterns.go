package strategy

import (
	"fmt"

	"PatternRadar/internal/model"
)

// Pattern names as they appear in signals and scan snapshots.
const (
	PatternVCP           = "vcp"
	PatternCupWithHandle = "cup_with_handle"
	PatternFlatBase      = "flat_base"
	PatternNearBreakout  = "near_breakout"
	PatternMomentum      = "momentum"
)

// Detection thresholds.
const (
	vcpNoiseFloor    = 0.05 // first-window range ratio must exceed this
	vcpTightBase     = 0.10 // score anchor: ratio 1 above this is rewarded
	cupMinDepth      = 0.12
	cupMaxDepth      = 0.35
	cupMinRecovery   = 0.90
	flatMinRange     = 0.07
	flatMaxRange     = 0.18
	flatMinPosition  = 0.90
	flatMinNearHigh  = 0.92
	breakoutMaxDist  = 0.05
	breakoutLookback = 21
)

func skipped(name string) model.PatternResult {
	return model.PatternResult{Name: name, Skipped: true, Reason: "insufficient history"}
}

// detectVCP looks for three consecutive 20-bar close ranges that contract,
// with volume drying up in the final 10 bars. Range ratios are measured
// against the close at each sub-window's start bar.
func detectVCP(s *model.Series, atIndex int, _ model.StatsWindow) model.PatternResult {
	if atIndex+1 < 60 {
		return skipped(PatternVCP)
	}

	closes := s.Closes()
	ratios := make([]float64, 3)
	for k := 0; k < 3; k++ {
		end := atIndex - (2-k)*20
		start := end - 19
		if start < 0 {
			start = 0
		}
		hi, lo := closes[start], closes[start]
		for _, c := range closes[start : end+1] {
			if c > hi {
				hi = c
			}
			if c < lo {
				lo = c
			}
		}
		anchor := end - 20
		if anchor < 0 {
			anchor = 0
		}
		if closes[anchor] == 0 {
			return model.PatternResult{Name: PatternVCP, Reason: "zero anchor close"}
		}
		ratios[k] = (hi - lo) / closes[anchor]
	}

	contracting := ratios[0] >= ratios[1] && ratios[1] >= ratios[2]
	wideEnough := ratios[0] > vcpNoiseFloor

	volLate := avgVolume(s, atIndex-9, atIndex)
	volEarly := avgVolume(s, atIndex-29, atIndex-10)
	volumeDrying := volLate < volEarly

	reason := fmt.Sprintf("ranges %.1f%%→%.1f%%→%.1f%%", ratios[0]*100, ratios[1]*100, ratios[2]*100)
	if !contracting || !wideEnough {
		return model.PatternResult{Name: PatternVCP, Reason: reason + ", not contracting"}
	}
	if !volumeDrying {
		return model.PatternResult{Name: PatternVCP, Reason: reason + ", volume not drying up"}
	}

	score := 1 + (ratios[0]-vcpTightBase)/vcpTightBase
	if score < 0.5 {
		score = 0.5
	}
	if score > 2.0 {
		score = 2.0
	}
	return model.PatternResult{
		Name:   PatternVCP,
		Active: true,
		Score:  score,
		Reason: reason + ", volume drying up",
	}
}

// detectCupWithHandle splits an 80-bar lookback into left rim, cup bottom,
// and handle, then checks retracement depth and recovery toward the rim.
func detectCupWithHandle(s *model.Series, atIndex int, _ model.StatsWindow) model.PatternResult {
	if atIndex+1 < 80 {
		return skipped(PatternCupWithHandle)
	}

	closes := s.Closes()
	leftRimHigh := maxOf(closes[atIndex-79 : atIndex-49]) // 80→50 bars back
	cupLow := minOf(closes[atIndex-50 : atIndex-14])      // 50→15 bars back
	handleHigh := maxOf(closes[atIndex-15 : atIndex-4])   // 15→5 bars back

	if leftRimHigh == 0 {
		return model.PatternResult{Name: PatternCupWithHandle, Reason: "zero left-rim high"}
	}
	depth := (leftRimHigh - cupLow) / leftRimHigh
	recovery := handleHigh / leftRimHigh

	reason := fmt.Sprintf("depth %.1f%%, recovery %.1f%%", depth*100, recovery*100)
	if depth < cupMinDepth || depth > cupMaxDepth {
		return model.PatternResult{Name: PatternCupWithHandle, Reason: reason + ", depth outside 12-35% band"}
	}
	if recovery < cupMinRecovery {
		return model.PatternResult{Name: PatternCupWithHandle, Reason: reason + ", recovery below 90%"}
	}

	return model.PatternResult{
		Name:   PatternCupWithHandle,
		Active: true,
		Score:  1 + (recovery-cupMinRecovery)*5,
		Reason: reason,
	}
}

// detectFlatBase checks for a tight 40-bar consolidation near the 252-day
// high. Failed sub-conditions are reported individually so a scan can
// surface "almost" setups.
func detectFlatBase(_ *model.Series, atIndex int, stats model.StatsWindow) model.PatternResult {
	if atIndex+1 < 40 {
		return skipped(PatternFlatBase)
	}

	high40, low40 := stats.High[40], stats.Low[40]
	if low40 == 0 || stats.High252 == 0 {
		return model.PatternResult{Name: PatternFlatBase, Reason: "degenerate price range"}
	}

	rng := (high40 - low40) / low40
	position := 1.0
	if high40 > low40 {
		position = (stats.Close - low40) / (high40 - low40)
	}
	nearHigh := high40 / stats.High252

	var misses []string
	switch {
	case rng < flatMinRange:
		misses = append(misses, "range too tight")
	case rng > flatMaxRange:
		misses = append(misses, "range too wide")
	}
	if position < flatMinPosition {
		misses = append(misses, "position too low")
	}
	if nearHigh < flatMinNearHigh {
		misses = append(misses, "too far from 252-day high")
	}

	detail := fmt.Sprintf("range %.1f%%, position %.0f%%, near-high %.0f%%", rng*100, position*100, nearHigh*100)
	if len(misses) > 0 {
		return model.PatternResult{Name: PatternFlatBase, Reason: detail + ": " + joinMisses(misses)}
	}

	return model.PatternResult{
		Name:   PatternFlatBase,
		Active: true,
		Score:  1 + (flatMaxRange - rng),
		Reason: detail,
	}
}

// detectNearBreakout activates when price holds above MA50 and trades
// within 5% below the highest close of the prior 21 bars.
func detectNearBreakout(s *model.Series, atIndex int, stats model.StatsWindow) model.PatternResult {
	if atIndex < breakoutLookback {
		return skipped(PatternNearBreakout)
	}

	if stats.Close <= stats.MA50 {
		return model.PatternResult{Name: PatternNearBreakout, Reason: "below 50-day MA"}
	}

	closes := s.Closes()
	pivot := maxOf(closes[atIndex-breakoutLookback : atIndex])
	if stats.Close == 0 {
		return model.PatternResult{Name: PatternNearBreakout, Reason: "zero close"}
	}
	dist := (pivot - stats.Close) / stats.Close

	reason := fmt.Sprintf("pivot %.2f, distance %.1f%%", pivot, dist*100)
	if dist < 0 {
		return model.PatternResult{Name: PatternNearBreakout, Reason: reason + ", already above pivot"}
	}
	if dist > breakoutMaxDist {
		return model.PatternResult{Name: PatternNearBreakout, Reason: reason + ", more than 5% below pivot"}
	}

	return model.PatternResult{
		Name:   PatternNearBreakout,
		Active: true,
		Score:  (breakoutMaxDist - dist) * 20,
		Reason: reason,
	}
}

// detectMomentum reports the 63-bar return. It never gates and never adds
// to the aggregate score; the ranker uses it as a tiebreaker and scans
// display it alongside the pattern columns.
func detectMomentum(_ *model.Series, atIndex int, stats model.StatsWindow) model.PatternResult {
	if atIndex+1 < 64 {
		return skipped(PatternMomentum)
	}
	return model.PatternResult{
		Name:   PatternMomentum,
		Score:  stats.Perf3m,
		Reason: fmt.Sprintf("%+.1f%% over 63 bars", stats.Perf3m*100),
	}
}

func avgVolume(s *model.Series, start, end int) float64 {
	if start < 0 {
		start = 0
	}
	if end < start {
		return 0
	}
	sum := 0.0
	for i := start; i <= end; i++ {
		sum += s.Bars[i].Volume
	}
	return sum / float64(end-start+1)
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func joinMisses(misses []string) string {
	out := misses[0]
	for _, m := range misses[1:] {
		out += ", " + m
	}
	return out
}
