package calculator

import (
	"math"
	"testing"
	"time"

	"PatternRadar/internal/model"
)

// seriesOf builds a series with the given closes on consecutive days.
// Volume defaults to 1e6 unless volumes are supplied.
func seriesOf(closes []float64, volumes ...float64) *model.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		vol := 1e6
		if i < len(volumes) {
			vol = volumes[i]
		}
		bars[i] = model.Bar{
			Date:     start.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   vol,
			AdjClose: c,
		}
	}
	return &model.Series{Ticker: "TEST", Bars: bars}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute_RejectsInvalidInput(t *testing.T) {
	if _, err := Compute(nil, 0); err == nil {
		t.Error("expected error for nil series")
	}
	if _, err := Compute(&model.Series{}, 0); err == nil {
		t.Error("expected error for empty series")
	}
	s := seriesOf([]float64{1, 2, 3})
	if _, err := Compute(s, 3); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := Compute(s, -1); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestCompute_ClampsShortSeries(t *testing.T) {
	// 10 bars: every 50/200/252-bar window degrades to the full prefix.
	s := seriesOf([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	w, err := Compute(s, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(w.MA50, 5.5) {
		t.Errorf("MA50 clamped to 10-bar average: expected 5.5, got %v", w.MA50)
	}
	if !almostEqual(w.MA200, 5.5) {
		t.Errorf("MA200 clamped: expected 5.5, got %v", w.MA200)
	}
	if w.High252 != 10 {
		t.Errorf("High252 clamped: expected 10, got %v", w.High252)
	}
	if w.High[60] != 10 || w.Low[60] != 1 {
		t.Errorf("60-bar window clamped: got high %v low %v", w.High[60], w.Low[60])
	}
}

func TestCompute_PeriodReturnBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		nBars      int
		perf3mZero bool
		perf6mZero bool
	}{
		{"63 bars, one short of perf3m", 63, true, true},
		{"64 bars, exact perf3m minimum", 64, false, true},
		{"126 bars, one short of perf6m", 126, false, true},
		{"127 bars, exact perf6m minimum", 127, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closes := make([]float64, tt.nBars)
			for i := range closes {
				closes[i] = float64(i + 1)
			}
			last := tt.nBars - 1
			w, err := Compute(seriesOf(closes), last)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.perf3mZero {
				if w.Perf3m != 0 {
					t.Errorf("expected Perf3m exactly 0, got %v", w.Perf3m)
				}
			} else {
				want := closes[last]/closes[last-63] - 1
				if !almostEqual(w.Perf3m, want) {
					t.Errorf("Perf3m: expected %v, got %v", want, w.Perf3m)
				}
			}
			if tt.perf6mZero {
				if w.Perf6m != 0 {
					t.Errorf("expected Perf6m exactly 0, got %v", w.Perf6m)
				}
			} else {
				want := closes[last]/closes[last-126] - 1
				if !almostEqual(w.Perf6m, want) {
					t.Errorf("Perf6m: expected %v, got %v", want, w.Perf6m)
				}
			}
		})
	}
}

func TestCompute_RollingWindows(t *testing.T) {
	// 100 flat bars at 100, then a spike to 120 fifteen bars back.
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}
	closes[85] = 120

	w, err := Compute(seriesOf(closes), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The spike sits 14 bars back: inside the 20-bar window, outside the 10-bar.
	if w.High[10] != 100 {
		t.Errorf("High[10]: expected 100, got %v", w.High[10])
	}
	if w.High[20] != 120 {
		t.Errorf("High[20]: expected 120, got %v", w.High[20])
	}
	if w.High252 != 120 {
		t.Errorf("High252: expected 120, got %v", w.High252)
	}
	if w.Low[20] != 100 {
		t.Errorf("Low[20]: expected 100, got %v", w.Low[20])
	}
}

func TestCompute_AvgVolume(t *testing.T) {
	volumes := make([]float64, 60)
	for i := range volumes {
		volumes[i] = 1000
	}
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	w, err := Compute(seriesOf(closes, volumes...), 59)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(w.AvgVolume50, 1000) {
		t.Errorf("AvgVolume50: expected 1000, got %v", w.AvgVolume50)
	}
}

func TestCompute_HistoricalIndex(t *testing.T) {
	// Evaluating at an interior index must ignore later bars.
	closes := []float64{1, 2, 3, 4, 5, 100}
	w, err := Compute(seriesOf(closes), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.High252 != 5 {
		t.Errorf("stats at index 4 must not see bar 5: got High252=%v", w.High252)
	}
	if w.Close != 5 {
		t.Errorf("Close at index 4: expected 5, got %v", w.Close)
	}
}
