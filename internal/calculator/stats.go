package calculator

import (
	"errors"

	"PatternRadar/internal/model"
)

// Rolling close high/low lookbacks consumed by pattern detection.
var shortWindows = []int{10, 20, 30, 40, 60}

// Compute derives all windowed statistics for the series at atIndex
// (normally the last bar). The series must be sorted ascending by date.
// Windows that would read before the first bar are clamped to the
// available prefix; the period returns degrade to exactly 0 when the
// series is shorter than their lookback plus one.
func Compute(s *model.Series, atIndex int) (model.StatsWindow, error) {
	if s == nil || s.Len() == 0 {
		return model.StatsWindow{}, errors.New("empty series")
	}
	if atIndex < 0 || atIndex >= s.Len() {
		return model.StatsWindow{}, errors.New("index out of range")
	}

	closes := s.Closes()
	w := model.StatsWindow{
		Close: closes[atIndex],
		High:  make(map[int]float64, len(shortWindows)),
		Low:   make(map[int]float64, len(shortWindows)),
	}

	w.MA50 = average(window(closes, atIndex, 50))
	w.MA200 = average(window(closes, atIndex, 200))
	w.High252, _ = highLow(window(closes, atIndex, 252))

	for _, n := range shortWindows {
		hi, lo := highLow(window(closes, atIndex, n))
		w.High[n] = hi
		w.Low[n] = lo
	}

	volumes := make([]float64, atIndex+1)
	for i := 0; i <= atIndex; i++ {
		volumes[i] = s.Bars[i].Volume
	}
	w.AvgVolume50 = average(window(volumes, atIndex, 50))

	w.Perf3m = periodReturn(closes, atIndex, 63)
	w.Perf6m = periodReturn(closes, atIndex, 126)

	return w, nil
}

// window returns the up-to-n values ending at atIndex, clamped to the
// start of the slice.
func window(values []float64, atIndex, n int) []float64 {
	start := atIndex + 1 - n
	if start < 0 {
		start = 0
	}
	return values[start : atIndex+1]
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func highLow(values []float64) (high, low float64) {
	if len(values) == 0 {
		return 0, 0
	}
	high, low = values[0], values[0]
	for _, v := range values[1:] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low
}

// periodReturn computes the return over the last n bars, or 0 when fewer
// than n+1 bars are available up to atIndex.
func periodReturn(closes []float64, atIndex, n int) float64 {
	if atIndex-n < 0 {
		return 0
	}
	base := closes[atIndex-n]
	if base == 0 {
		return 0
	}
	return closes[atIndex]/base - 1
}
